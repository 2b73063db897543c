package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
)

func TestPrometheus_Contadores(t *testing.T) {
	m := New("epp")
	m.ProposalEvaluated(entity.KindOUT, inventory.OutcomeAccepted)
	m.ProposalEvaluated(entity.KindOUT, inventory.OutcomeAccepted)
	m.ConfirmEvaluated(entity.KindOUT, inventory.OutcomeStockChanged)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.proposals.WithLabelValues("OUT", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirms.WithLabelValues("OUT", "stock_changed")))

	expected := `
# HELP epp_kardex_confirmations_total Confirmaciones de movimiento, por tipo y resultado.
# TYPE epp_kardex_confirmations_total counter
epp_kardex_confirmations_total{kind="OUT",outcome="stock_changed"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "epp_kardex_confirmations_total"))
}
