package enums

// RefundType is the outcome discriminator returned by the gateway refund call.
type RefundType string

const (
	RefundTypeReversed           RefundType = "REVERSED"
	RefundTypeNullified          RefundType = "NULLIFIED"
	RefundTypePartiallyNullified RefundType = "PARTIALLY_NULLIFIED"
)
