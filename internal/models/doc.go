// Package models defines the persisted state document for Pantrybook.
//
// # Collections
//
//   - Ingredient: catalog entry describing a purchasable pack
//   - Lot: a discrete quantity of an ingredient sitting in the pantry
//   - Recipe: ingredient list scaled by portions, plus cook history
//   - PlannedRecipe: one recipe in the active meal plan
//   - ShoppingEntry: "buy N packs" line on the shopping list
//   - PurchaseEntry / WasteEntry: append-mostly history logs
//   - Session: the in-progress shopping trip (checked-off items)
//
// # Design Principles
//
//  1. The whole state is one JSON document; collections reference each other
//     by id strings, never by pointers.
//  2. Derived money fields (Lot.Cost, Lot.UnitCost) are caches. The source of
//     truth is the current Ingredient price; any price change re-derives them.
//  3. History logs may reference deleted ingredients. That is deliberate:
//     deleting an ingredient must not rewrite purchase history.
//
// # Schema
//
// State.Schema tracks the document version. Older documents are migrated by
// the state package before use; CurrentSchema there is the ceiling.
package models
