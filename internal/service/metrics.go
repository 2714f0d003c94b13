package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/classify/catalog/pkg/errors"
)

// Metrics counts catalog mutations by operation and outcome.
type Metrics struct {
	mutations *prometheus.CounterVec
}

// NewMetrics registers the catalog mutation counter with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_mutations_total",
			Help: "Catalog mutations by operation and result.",
		}, []string{"operation", "result"}),
	}
	if err := reg.Register(m.mutations); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeValidation:
			return "invalid"
		case apperrors.CodeNotFound:
			return "not_found"
		case apperrors.CodeDuplicateKey:
			return "conflict"
		}
	}
	return "error"
}
