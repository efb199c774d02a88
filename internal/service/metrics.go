package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvflow_stage_transitions_total",
		Help: "Avancos de etapa gravados, por etapa de origem e destino",
	}, []string{"from", "to"})

	gateBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvflow_gate_blocks_total",
		Help: "Salvamentos cujo avanco foi bloqueado por campo obrigatorio do gate",
	}, []string{"stage", "field"})

	saveRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvflow_save_rejections_total",
		Help: "Salvamentos recusados, por motivo",
	}, []string{"reason"})
)
