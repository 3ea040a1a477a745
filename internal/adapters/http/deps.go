package http

import (
	"github.com/nats-io/nats.go"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/adapters/postgres"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/adapters/valkey"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/ports"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/usecases"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/realtime"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Proximity *usecases.ProximityService
	Memories  *usecases.MemoryService
	Users     ports.UserRepository
	Verifier  ports.TokenVerifier
	Protocol  *realtime.Protocol
	Registry  *realtime.Registry
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
