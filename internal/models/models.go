package models

// All lists every model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Company{}, &LineItemTemplate{}, &Invoice{}, &InvoiceDetail{},
	}
}
