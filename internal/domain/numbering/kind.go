package numbering

import (
	"fmt"

	"github.com/docuflow/backend/internal/domain/shared"
)

// DocumentKind identifies which document family a number belongs to
type DocumentKind string

const (
	DocumentKindInvoice        DocumentKind = "INVOICE"         // 发票
	DocumentKindExpense        DocumentKind = "EXPENSE"         // 费用单
	DocumentKindPurchaseOrder  DocumentKind = "PURCHASE_ORDER"  // 采购订单
	DocumentKindPaymentVoucher DocumentKind = "PAYMENT_VOUCHER" // 付款单
)

// IsValid checks if the kind is a valid DocumentKind
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentKindInvoice, DocumentKindExpense, DocumentKindPurchaseOrder, DocumentKindPaymentVoucher:
		return true
	}
	return false
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// PrefixRegistry maps document kinds to the fixed prefix used in their
// human-readable numbers. The mapping is explicit configuration; an
// unknown kind is a usage error, never retried.
type PrefixRegistry map[DocumentKind]string

// DefaultPrefixes returns the standard kind-to-prefix mapping
func DefaultPrefixes() PrefixRegistry {
	return PrefixRegistry{
		DocumentKindInvoice:        "IN",
		DocumentKindExpense:        "EX",
		DocumentKindPurchaseOrder:  "PO",
		DocumentKindPaymentVoucher: "PV",
	}
}

// PrefixFor resolves the prefix for a kind
func (r PrefixRegistry) PrefixFor(kind DocumentKind) (string, error) {
	prefix, ok := r[kind]
	if !ok || prefix == "" {
		return "", shared.NewDomainError("UNKNOWN_DOCUMENT_KIND", fmt.Sprintf("No number prefix registered for document kind %q", kind))
	}
	return prefix, nil
}
