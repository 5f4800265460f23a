// Package app composes the custodial ledger engine into a running
// application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── account/        # Accounts, credentials, memo aliases
//	│   ├── ledger/         # Balances, pools, fees, system params
//	│   ├── loan/           # Collateralized loans
//	│   ├── bridge/         # Chains and cross-chain transfers
//	│   └── event/          # Operation audit records
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces and the Mutation batch
//	│   ├── memory/         # In-memory implementation for testing
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Business logic
//	│   ├── accounts/       # Registration, memos, recovery
//	│   ├── ledger/         # Deposits, withdrawals, transfers, fees
//	│   ├── interest/       # Savings accrual and the cron sweeper
//	│   ├── lending/        # Borrow, repay, liquidation, price oracle
//	│   ├── bridge/         # Lock, delay queue, remote credits
//	│   └── governor/       # Pause flags, fee and parameter changes
//	├── httpapi/            # HTTP handlers, auth, rate limiting, CORS
//	├── events/             # Append-only operation log with sinks
//	├── guard/              # Per-account operation serialization
//	├── trust/              # Capability authorization and KYC hooks
//	├── system/             # Background service lifecycle management
//	└── metrics/            # Prometheus collectors
//
// # Dependency Direction
//
// cmd/noorid depends on internal/app, which wires services over the
// storage interfaces. Services depend on domain models, storage
// interfaces, and each other's narrow local interfaces, never on
// httpapi or concrete stores.
//
// # Adding a New Domain
//
//  1. Create domain models in internal/app/domain/<name>/
//  2. Add a store interface to internal/app/storage/interfaces.go
//  3. Implement it in internal/app/storage/postgres/ and memory/
//  4. Create the service in internal/app/services/<name>/service.go
//  5. Wire the service in internal/app/application.go
//  6. Add HTTP handlers in internal/app/httpapi/handler.go
package app
