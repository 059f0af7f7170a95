// Package models defines the core domain models for warikan.
//
// # Models
//
//   - Person: someone who can take part in purchases
//   - Purchase: a shared purchase with its participants and lifecycle stage
//   - Participant: a person's share of one purchase (toPay / paid)
//   - Stage: the lifecycle stage of a purchase
//   - User: an identity account, used only by the reference server's
//     identity emulator
//
// # Wire format
//
// The models carry the JSON field names used by the REST API: ids are
// "_id" and a purchase's participants are "people". Amounts are
// decimal.Decimal; they encode as numeric strings and decode from either
// strings or JSON numbers.
//
// # Lifecycle
//
// Purchases are created unsettled and move along
//
//	unsettled <-> settled
//	unsettled -> archived
//	settled   -> archived
//
// Archived is terminal. Moving a purchase to the stage it is already in is
// accepted and changes nothing.
package models
