// Package models defines the core domain models of the ledger.
//
// # Models
//
//   - Account: a ledger of records inside a wallet, carrying its cached balance and anchor
//   - Record: a signed, dated monetary entry belonging to one account
//   - Monthly: a checkpoint holding an account's cumulative balance at a UTC month start
//   - Debt: a payable or receivable whose balance is derived from its linked records
//
// Wallets, categories, labels and planned entries are owned by the surrounding
// application; records only carry their IDs.
//
// # Conventions
//
//  1. IDs are UUID strings, relationships are expressed as ID strings, never pointers
//  2. Instants are UTC Unix milliseconds (int64)
//  3. Amounts are float64 major units, always rounded to two decimals before they are stored
//  4. An empty string means "no reference" for optional relationships
package models
