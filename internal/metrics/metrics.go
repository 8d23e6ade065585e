package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_validations_total",
			Help: "Scenario definitions validated on load, by result (published or rejected).",
		},
		[]string{"result"},
	)

	ValidationWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scenario_validation_warnings_total",
		Help: "Non-fatal validation warnings raised for published scenarios.",
	})

	AttemptsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scenario_attempts_started_total",
		Help: "Total number of scenario attempts started.",
	})

	ChoicesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_choices_total",
			Help: "Option selections by outcome (continued, finished, rejected, conflict).",
		},
		[]string{"outcome"},
	)

	GradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_grades_total",
			Help: "Graded attempts by pass/fail.",
		},
		[]string{"passed"},
	)

	GradePercentage = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scenario_grade_percentage",
		Help:    "Distribution of graded attempt percentages.",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
)
