package workflow

// FlowType identifies which business-document workflow applies
type FlowType string

const (
	FlowTypeInvoice        FlowType = "INVOICE"         // 发票
	FlowTypeExpense        FlowType = "EXPENSE"         // 费用
	FlowTypePurchaseOrder  FlowType = "PURCHASE_ORDER"  // 采购订单
	FlowTypePaymentVoucher FlowType = "PAYMENT_VOUCHER" // 付款单
)

// IsValid checks if the flow type is a valid FlowType
func (f FlowType) IsValid() bool {
	switch f {
	case FlowTypeInvoice, FlowTypeExpense, FlowTypePurchaseOrder, FlowTypePaymentVoucher:
		return true
	}
	return false
}

// String returns the string representation of FlowType
func (f FlowType) String() string {
	return string(f)
}

// AllFlowTypes returns every valid flow type
func AllFlowTypes() []FlowType {
	return []FlowType{
		FlowTypeInvoice,
		FlowTypeExpense,
		FlowTypePurchaseOrder,
		FlowTypePaymentVoucher,
	}
}
