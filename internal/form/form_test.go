package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFormAccumulatesAllErrors(t *testing.T) {
	f := New(map[string]interface{}{"nombre": "", "email": "no-es-correo"}, map[string]Validator{
		"nombre": Required("El nombre"),
		"email":  Email("El correo"),
	})

	assert.False(t, f.ValidateForm())
	errs := f.Errors()
	assert.Len(t, errs, 2)
	assert.Contains(t, errs["nombre"], "obligatorio")
	assert.Contains(t, errs["email"], "no es un correo válido")
}

func TestSetValueClearsFieldError(t *testing.T) {
	f := New(map[string]interface{}{"nombre": ""}, map[string]Validator{
		"nombre": Required("El nombre"),
	})

	f.ValidateForm()
	require.NotEmpty(t, f.Errors()["nombre"])

	f.SetValue("nombre", "Ana")
	assert.Empty(t, f.Errors()["nombre"])
	assert.True(t, f.Touched("nombre"))
}

func TestHandleSubmitBlocksInvalidForm(t *testing.T) {
	f := New(map[string]interface{}{"email": "sin-arroba"}, map[string]Validator{
		"email": Email("El correo"),
	})

	submitted := false
	err := f.HandleSubmit(context.Background(), func(ctx context.Context, values map[string]interface{}) error {
		submitted = true
		return nil
	})

	require.NoError(t, err)
	assert.False(t, submitted)
	assert.NotEmpty(t, f.Errors()["email"])
	assert.False(t, f.IsSubmitting())
}

func TestHandleSubmitRunsWhenValid(t *testing.T) {
	f := New(map[string]interface{}{"email": "ana@icap.edu"}, map[string]Validator{
		"email": Email("El correo"),
	})

	var received map[string]interface{}
	err := f.HandleSubmit(context.Background(), func(ctx context.Context, values map[string]interface{}) error {
		received = values
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ana@icap.edu", received["email"])
	assert.False(t, f.IsSubmitting())
}

func TestHandleSubmitPropagatesSubmitError(t *testing.T) {
	f := New(nil, nil)

	wantErr := errors.New("upstream rechazó el registro")
	err := f.HandleSubmit(context.Background(), func(ctx context.Context, values map[string]interface{}) error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.False(t, f.IsSubmitting())
}

func TestReset(t *testing.T) {
	f := New(map[string]interface{}{"nombre": "inicial"}, map[string]Validator{
		"nombre": Required("El nombre"),
	})

	f.SetValue("nombre", "")
	f.ValidateForm()
	require.NotEmpty(t, f.Errors())

	f.Reset()
	assert.Equal(t, "inicial", f.Values()["nombre"])
	assert.Empty(t, f.Errors())
	assert.False(t, f.Touched("nombre"))
}

func TestValidators(t *testing.T) {
	assert.Empty(t, Required("X")("valor"))
	assert.NotEmpty(t, Required("X")(nil))
	assert.NotEmpty(t, Required("X")("   "))

	assert.Empty(t, Email("X")("a@b.co"))
	assert.Empty(t, Email("X")(""), "empty is Required's concern")
	assert.NotEmpty(t, Email("X")("malo"))

	assert.Empty(t, MinLength("X", 3)("abcd"))
	assert.NotEmpty(t, MinLength("X", 3)("ab"))

	assert.Empty(t, Numeric("X")("1234"))
	assert.NotEmpty(t, Numeric("X")("12a4"))
}
