// Package app provides the application composition layer for the DAO.
//
// # Architecture Role
//
// The app package composes the domain services into a running application.
// It is NOT a business logic layer - business logic belongs in
// internal/app/services/.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── org/            # Organizations and contributions
//	│   ├── proposal/       # Governance proposals
//	│   ├── annuity/        # Fixed-income instruments
//	│   ├── asset/          # Ledger assets, holdings, journal entries
//	│   └── money/          # Fixed-point amounts
//	├── faults/             # Sentinel error taxonomy
//	├── clock/              # Injectable time source
//	├── ledger/             # Journaled value movement
//	├── events/             # Domain event sinks (log, memory, websocket)
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces
//	│   ├── memory/         # In-memory implementation for testing
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/
//	│   ├── treasury/       # Organization coordinator
//	│   ├── governance/     # Proposal state machine
//	│   └── annuity/        # Annuity engine
//	├── httpapi/            # HTTP API handlers and routing
//	├── system/             # Lifecycle management
//	├── metrics/            # Prometheus collectors
//	└── runtime/            # Config-to-server wiring
//
// # Responsibilities
//
//   - Composing services from internal/app/services/ with their dependencies
//   - Defining storage interfaces that services depend on
//   - Providing domain models shared across services
//   - Exposing HTTP API endpoints for external access
//
// The dependency flow is:
//
//	cmd/daoserver/
//	      │
//	      ▼
//	internal/app/runtime (wiring)
//	      │
//	      ▼
//	internal/app/ (composition)
//	      │
//	      ├──► internal/app/services/ (business logic)
//	      │           │
//	      │           └──► internal/app/ledger/ (value movement)
//	      │
//	      └──► internal/app/storage/ (persistence)
package app
