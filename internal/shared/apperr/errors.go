package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Validation indica entrada rejeitada antes de qualquer escrita
type Validation struct {
	Message string
	Field   string
}

func (e *Validation) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: invalid field '%s' - %s", e.Field, e.Message)
	}
	return "validation: " + e.Message
}

type NotFound struct {
	Entity string
	ID     string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s with ID '%s' not found", e.Entity, e.ID)
}

// Conflict indica que o estado atual impede a operação (ex.: mercado já liquidado)
type Conflict struct {
	Message string
}

func (e *Conflict) Error() string {
	return "conflict: " + e.Message
}

// Config é retornado quando parâmetros obrigatórios de conexão estão ausentes
type Config struct {
	Missing []string
	Message string
}

func (e *Config) Error() string {
	if len(e.Missing) > 0 {
		return "configuration: missing required " + strings.Join(e.Missing, ", ")
	}
	return "configuration: " + e.Message
}

// Helpers de construção usados pelos serviços
func Invalid(field, format string, args ...any) error {
	return &Validation{Field: field, Message: fmt.Sprintf(format, args...)}
}

func Missing(entity, id string) error { return &NotFound{Entity: entity, ID: id} }

func Conflictf(format string, args ...any) error {
	return &Conflict{Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus mapeia a taxonomia de erros para status HTTP
func HTTPStatus(err error) int {
	var (
		v *Validation
		n *NotFound
		c *Conflict
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &v):
		return http.StatusBadRequest
	case errors.As(err, &n):
		return http.StatusNotFound
	case errors.As(err, &c):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsValidation facilita checagens em testes e handlers
func IsValidation(err error) bool {
	var v *Validation
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var n *NotFound
	return errors.As(err, &n)
}

func IsConflict(err error) bool {
	var c *Conflict
	return errors.As(err, &c)
}
