package ordering

// Policy switches the order rules that have more than one reasonable reading.
type Policy struct {
	// StrictTransitions rejects status changes the lifecycle does not allow.
	StrictTransitions bool
	// ClearTableOnAnyPayment forgets the dine-in table as soon as any order of
	// the check is paid. When false the table is kept until no open dine-in
	// order remains at it.
	ClearTableOnAnyPayment bool
	// EnforceMinOrder rejects delivery orders below Settings.MinOrder.
	EnforceMinOrder bool
}

// DefaultPolicy keeps the historical behavior of the shop.
func DefaultPolicy() Policy {
	return Policy{ClearTableOnAnyPayment: true}
}
