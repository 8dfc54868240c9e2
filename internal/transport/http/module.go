package http

import (
	"go.uber.org/fx"

	analysistransport "github.com/Additional-Code/salesboard/internal/transport/http/analysis"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	analysistransport.Module,
)
