package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/flight-seat-inventory/internal/service"
)

func TestStatusFor(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("pool FL1/economy: %w", err) }
	assert.Equal(t, http.StatusBadRequest, statusFor(wrap(service.ErrInvalidArgument)))
	assert.Equal(t, http.StatusNotFound, statusFor(wrap(service.ErrNotFound)))
	assert.Equal(t, http.StatusConflict, statusFor(wrap(service.ErrConflict)))
	assert.Equal(t, http.StatusConflict, statusFor(wrap(service.ErrResourceExhausted)))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(wrap(service.ErrUnavailable)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
