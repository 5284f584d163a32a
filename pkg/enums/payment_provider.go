package enums

import "fmt"

// PaymentProvider identifies the simulated payment rail used for an order.
type PaymentProvider string

const (
	PaymentProviderCreditCard     PaymentProvider = "CREDIT_CARD"
	PaymentProviderDebitCard      PaymentProvider = "DEBIT_CARD"
	PaymentProviderPSE            PaymentProvider = "PSE"
	PaymentProviderNequi          PaymentProvider = "NEQUI"
	PaymentProviderDaviplata      PaymentProvider = "DAVIPLATA"
	PaymentProviderCashOnDelivery PaymentProvider = "CASH_ON_DELIVERY"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderCreditCard,
	PaymentProviderDebitCard,
	PaymentProviderPSE,
	PaymentProviderNequi,
	PaymentProviderDaviplata,
	PaymentProviderCashOnDelivery,
}

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}

// PaymentProviders lists every provider the adapter accepts.
func PaymentProviders() []PaymentProvider {
	out := make([]PaymentProvider, len(validPaymentProviders))
	copy(out, validPaymentProviders)
	return out
}
