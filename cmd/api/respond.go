package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/bankLoan/pkg/auth"
	"github.com/mcclellann/bankLoan/pkg/ledger"
	"github.com/mcclellann/bankLoan/pkg/store"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []ledger.FieldError `json:"fields,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFail(w http.ResponseWriter, status int, code, message string, fields []ledger.FieldError) {
	writeJSON(w, status, errorBody{Code: code, Message: message, Fields: fields})
}

// writeError maps engine and store errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *ledger.ValidationError
		terr *ledger.IllegalTransitionError
		ferr *ledger.InsufficientFundsError
		perr *ledger.AlreadyPaidError
		oerr *ledger.OutOfOrderPaymentError
	)
	switch {
	case errors.As(err, &verr):
		writeFail(w, http.StatusBadRequest, "validation_error", verr.Error(), verr.Fields)
	case errors.As(err, &terr):
		writeFail(w, http.StatusConflict, "illegal_transition", terr.Error(), nil)
	case errors.As(err, &ferr):
		writeFail(w, http.StatusUnprocessableEntity, "insufficient_funds", ferr.Error(), nil)
	case errors.As(err, &perr):
		writeFail(w, http.StatusConflict, "already_paid", perr.Error(), nil)
	case errors.As(err, &oerr):
		writeFail(w, http.StatusConflict, "out_of_order_payment", oerr.Error(), nil)
	case errors.Is(err, ledger.ErrForbidden):
		writeFail(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action", nil)
	case errors.Is(err, store.ErrNotFound):
		writeFail(w, http.StatusNotFound, "not_found", "Not found", nil)
	case errors.Is(err, store.ErrConflict):
		writeFail(w, http.StatusConflict, "conflict", "A record with these details already exists", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeFail(w, http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInactiveUser):
		writeFail(w, http.StatusUnauthorized, "unauthorized", "Authentication credentials are invalid", nil)
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeFail(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid_body", fmt.Sprintf("Invalid request body: %v", err), nil)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeFail(w, http.StatusBadRequest, "invalid_body", err.Error(), nil)
			return false
		}
		fields := make([]ledger.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, ledger.FieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		writeFail(w, http.StatusBadRequest, "validation_error", "Request validation failed", fields)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if fe.Kind() == reflect.String {
			return "Must be at least " + fe.Param() + " characters"
		}
		return "Must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "lte":
		return "Must be less than or equal to " + fe.Param()
	}
	return "Invalid value"
}

// pathID parses a uuid path variable, writing a 400 if it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[key])
	if err != nil {
		writeFail(w, http.StatusBadRequest, "invalid_id", "Invalid "+strings.ReplaceAll(key, "_", " "), nil)
		return uuid.Nil, false
	}
	return id, true
}
