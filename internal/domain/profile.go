package domain

// DisplayCurrencies lists the currencies a user may pick for display
var DisplayCurrencies = []string{
	"USD", "EUR", "GBP", "CAD", "AUD", "NZD", "JPY", "CHF", "SEK", "NOK",
	"DKK", "PLN", "CZK", "HUF", "RON", "BGN", "HRK", "BRL", "MXN", "CLP",
	"COP", "PEN", "ARS", "CNY", "HKD", "SGD", "KRW", "INR", "IDR", "THB",
	"MYR", "PHP", "VND", "TWD", "PKR", "ILS", "AED", "SAR", "QAR", "KWD",
	"BHD", "ZAR", "NGN", "GHS", "KES", "MAD", "USDC",
}

const DefaultDisplayCurrency = "USD"

var (
	FinancialKnowledgeLevels = []string{"none", "beginner", "intermediate", "advanced"}
	RiskLevels               = []string{"low", "medium", "high"}
)

// IsOneOf reports whether v is in allowed
func IsOneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
