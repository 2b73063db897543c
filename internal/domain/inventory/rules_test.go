package inventory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
)

func TestSignedQuantity(t *testing.T) {
	tests := []struct {
		name    string
		kind    entity.MovementKind
		qty     int64
		want    int64
		wantErr error
	}{
		{"ingreso positivo", entity.KindIN, 10, 10, nil},
		{"entrega se guarda negativa", entity.KindOUT, 3, -3, nil},
		{"traslado salida negativo", entity.KindTransferOut, 2, -2, nil},
		{"devolución positiva", entity.KindReturn, 1, 1, nil},
		{"ajuste negativo se respeta", entity.KindAdjust, -4, -4, nil},
		{"cero inválido", entity.KindIN, 0, 0, domain.ErrInvalidQuantity},
		{"ajuste cero inválido", entity.KindAdjust, 0, 0, domain.ErrInvalidQuantity},
		{"magnitud negativa en OUT", entity.KindOUT, -3, 0, domain.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SignedQuantity(tt.kind, tt.qty)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckQuantity(t *testing.T) {
	assert.NoError(t, CheckQuantity(entity.KindOUT, -3))
	assert.ErrorIs(t, CheckQuantity(entity.KindOUT, 3), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, CheckQuantity(entity.KindIN, -3), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, CheckQuantity(entity.KindReturn, 0), domain.ErrInvalidQuantity)
	assert.NoError(t, CheckQuantity(entity.KindAdjust, -3))
	assert.NoError(t, CheckQuantity(entity.KindAdjust, 3))
}

func TestCheckSize(t *testing.T) {
	boots := &entity.Item{Name: "Boots", RequiresSize: true}
	gloves := &entity.Item{Name: "Gloves"}

	assert.ErrorIs(t, CheckSize(boots, ""), domain.ErrSizeRequired)
	assert.NoError(t, CheckSize(boots, "T/41"))
	assert.ErrorIs(t, CheckSize(gloves, "M"), domain.ErrSizeNotApplicable)
	assert.NoError(t, CheckSize(gloves, ""))
}

func TestCheckEmployee(t *testing.T) {
	emp := int64(7)
	assert.ErrorIs(t, CheckEmployee(entity.KindOUT, nil), domain.ErrEmployeeRequired)
	assert.NoError(t, CheckEmployee(entity.KindOUT, &emp))
	assert.ErrorIs(t, CheckEmployee(entity.KindIN, &emp), domain.ErrEmployeeNotApplicable)
	assert.ErrorIs(t, CheckEmployee(entity.KindAdjust, &emp), domain.ErrEmployeeNotApplicable)
	assert.NoError(t, CheckEmployee(entity.KindReturn, &emp))
	assert.NoError(t, CheckEmployee(entity.KindReturn, nil))
}

func TestCheckStock(t *testing.T) {
	assert.NoError(t, CheckStock(0, 5), "las entradas no se validan contra stock")
	assert.NoError(t, CheckStock(7, -7))

	err := CheckStock(7, -10)
	require.Error(t, err)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(7), ise.Available)
	assert.Equal(t, int64(10), ise.Requested)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}
