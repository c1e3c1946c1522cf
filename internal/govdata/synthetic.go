// Package govdata supplies the government-side comparison figures an
// invoice is reconciled against. Source is the seam where a real GSTN
// (GSTR-2A/2B) fetch would plug in; the shipped implementation derives
// demo figures by perturbing the extracted values.
package govdata

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gstportal/internal/logger"
	"gstportal/pkg/models"
)

// Source produces the paired government figures for a freshly extracted
// invoice.
type Source interface {
	Derive(inv *models.ExtractedInvoice) models.GovtData
}

// Perturbation factors applied by the synthetic source: roughly half the
// derived records land outside the 1% mismatch tolerance.
var (
	factorLow  = decimal.RequireFromString("0.95") // -5%
	factorHigh = decimal.RequireFromString("1.03") // +3%
)

// SyntheticSource derives government figures by scaling the extracted
// figures with -5% or +3%, chosen at random per invoice, rounded to two
// fraction digits the way published GSTR data is.
type SyntheticSource struct {
	mu  sync.Mutex
	rng *rand.Rand
	log zerolog.Logger
}

// NewSyntheticSource creates a source seeded from seed. A non-positive seed
// picks a time-based one.
func NewSyntheticSource(seed int64) *SyntheticSource {
	if seed <= 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticSource{
		rng: rand.New(rand.NewSource(seed)),
		log: logger.WithComponent("govdata-synthetic"),
	}
}

// Derive returns the perturbed comparison figures for inv.
func (s *SyntheticSource) Derive(inv *models.ExtractedInvoice) models.GovtData {
	s.mu.Lock()
	factor := factorHigh
	if s.rng.Float64() < 0.5 {
		factor = factorLow
	}
	s.mu.Unlock()

	data := models.GovtData{
		TaxableValue: inv.TaxableValue.Mul(factor).Round(2),
		IGST:         inv.IGST.Mul(factor).Round(2),
	}

	s.log.Debug().
		Str("invoice_number", inv.InvoiceNumber).
		Str("factor", factor.String()).
		Str("govt_taxable_value", data.TaxableValue.String()).
		Str("govt_igst", data.IGST.String()).
		Msg("Synthetic government data derived")
	return data
}
