package tax

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmcarrell/storefront-backend/pkg/config"
	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/dmcarrell/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Breakdown maps jurisdiction/class keys to tax amounts.
type Breakdown map[string]decimal.Decimal

// Total sums every entry in the breakdown.
func (b Breakdown) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range b {
		total = total.Add(amount)
	}
	return total
}

// Keys returns the breakdown keys in sorted order.
func (b Breakdown) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Processor computes tax for whole orders and for point queries. An
// implementation that cannot resolve a jurisdiction or rate returns zero
// tax and a nil error so reconciliation always completes.
type Processor interface {
	Name() string
	ProcessOrder(ctx context.Context, order *models.Order) (decimal.Decimal, Breakdown, error)
	ByPrice(ctx context.Context, taxClass string, price decimal.Decimal) (decimal.Decimal, error)
	ByOrderItem(ctx context.Context, item *models.OrderItem) (decimal.Decimal, error)
}

// Deps is the stack handed to processor constructors.
type Deps struct {
	Config config.TaxConfig
	Rates  RateRepository
	Log    *logger.Logger
}

// Constructor builds a processor from its dependencies.
type Constructor func(deps Deps) (Processor, error)

// Registry maps processor names to constructors so the active
// implementation is a configuration choice, not a code change.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns a registry pre-loaded with the built-in processors.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register(ProcessorFlat, NewFlatProcessor)
	r.Register(ProcessorAreaRate, NewAreaRateProcessor)
	r.Register(ProcessorBoundary, NewBoundaryProcessor)
	return r
}

// Register adds (or replaces) a named constructor.
func (r *Registry) Register(name string, ctor Constructor) {
	r.constructors[name] = ctor
}

// Names lists the registered processor names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the processor the configuration selects.
func (r *Registry) New(deps Deps) (Processor, error) {
	ctor, ok := r.constructors[deps.Config.Processor]
	if !ok {
		return nil, fmt.Errorf("unknown tax processor %q (have %v)", deps.Config.Processor, r.Names())
	}
	return ctor(deps)
}

// Built-in processor names.
const (
	ProcessorFlat     = "flat"
	ProcessorAreaRate = "arearate"
	ProcessorBoundary = "boundary"
)

// RateRepository exposes the lookups the table-driven processors need.
type RateRepository interface {
	WithTx(tx *gorm.DB) RateRepository
	// FindAreaRate returns the rate for (taxClass, country, area), falling
	// back to the country-level row (empty area). Nil when neither exists.
	FindAreaRate(ctx context.Context, taxClass, country, area string) (*models.TaxRate, error)
	// FindJurisdictions resolves the jurisdictions whose dated boundaries
	// contain the given ZIP (and ZIP+4 when plus4 is non-empty).
	FindJurisdictions(ctx context.Context, zip, plus4 string, asOf time.Time) ([]models.TaxJurisdiction, error)
}
