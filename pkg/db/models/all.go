package models

// All lists every persisted model; used by the SQLite test harness.
func All() []any {
	return []any{
		&Business{},
		&User{},
		&Product{},
		&Store{},
		&StoreInventory{},
		&InventoryTransfer{},
		&TransferItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
