package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	KindNotFound                       Kind = "NotFound"
	KindNoBOMDefined                   Kind = "NoBOMDefined"
	KindInvalidQuantity                Kind = "InvalidQuantity"
	KindInvalidInput                   Kind = "InvalidInput"
	KindInsufficientStock              Kind = "InsufficientStock"
	KindNonIntegralDiscreteConsumption Kind = "NonIntegralDiscreteConsumption"
	KindConflict                       Kind = "Conflict"
	KindStorageFault                   Kind = "StorageFault"
)

// Error: ошибка ядра, вид + короткое машинное сообщение.
// Materials содержит материалы, из-за которых набор изменений отклонён.
type Error struct {
	Kind      Kind
	Message   string
	Materials []uuid.UUID
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает по виду, чтобы работал errors.Is(err, apperr.New(KindConflict, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithMaterials возвращает копию ошибки с перечнем виновных материалов.
func (e *Error) WithMaterials(ids ...uuid.UUID) *Error {
	cp := *e
	cp.Materials = append(append([]uuid.UUID(nil), e.Materials...), ids...)
	return &cp
}

// KindOf возвращает вид ошибки; всё, что не *Error, считается сбоем хранилища.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFault
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable: конфликт при коммите, пользователь может поправить ввод и повторить.
func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == KindInsufficientStock || k == KindConflict
}

// MaterialsOf достаёт список виновных материалов из цепочки ошибок.
func MaterialsOf(err error) []uuid.UUID {
	var e *Error
	if errors.As(err, &e) {
		return e.Materials
	}
	return nil
}
