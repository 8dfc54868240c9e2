package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/salesboard/internal/cache"
	"github.com/Additional-Code/salesboard/internal/config"
	"github.com/Additional-Code/salesboard/internal/database"
	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/logger"
	"github.com/Additional-Code/salesboard/internal/messaging"
	"github.com/Additional-Code/salesboard/internal/observability"
	repositoryorder "github.com/Additional-Code/salesboard/internal/repository/order"
	grpcserver "github.com/Additional-Code/salesboard/internal/server/grpc"
	httpserver "github.com/Additional-Code/salesboard/internal/server/http"
	serviceanalysis "github.com/Additional-Code/salesboard/internal/service/analysis"
	transporthttp "github.com/Additional-Code/salesboard/internal/transport/http"
	"github.com/Additional-Code/salesboard/internal/worker"
	workerdataset "github.com/Additional-Code/salesboard/internal/worker/dataset"
)

// Storage provides the connections and repositories without the dataset
// pipeline, for commands that only touch the database.
var Storage = fx.Options(
	config.Module,
	logger.Module,
	database.Module,
	repositoryorder.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	Storage,
	cache.Module,
	messaging.Module,
	observability.Module,
	dataset.Module,
	observability.Dataset,
	serviceanalysis.Module,
)

// HTTP wires the HTTP transport and the optional gRPC health server on top
// of the core modules.
var HTTP = fx.Options(
	Core,
	dataset.Publisher,
	httpserver.Module,
	transporthttp.Module,
	grpcserver.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerdataset.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
