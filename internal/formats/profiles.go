// Package formats holds the static registry of known statement layouts and
// the scoring logic that picks the best-matching profile for an import.
//
// Each profile describes one institution's export: the headers it is expected
// to carry, the signature columns that discriminate it from other formats,
// and how its columns map onto the canonical transaction fields. Signature
// columns matter most because shared headers like "Date" appear in nearly
// every format and carry little signal, while a column like "Card Member"
// identifies exactly one issuer.
package formats

// FieldMapping maps a profile's source columns onto canonical transaction
// fields. Either Amount or the Debit/Credit pair is set, never both.
type FieldMapping struct {
	Date        string
	Merchant    string
	Amount      string
	Debit       string
	Credit      string
	Description string
}

// Profile is a named signature for one known statement layout. Profiles are
// immutable and compiled into the binary.
type Profile struct {
	ID               string
	Name             string
	Institution      string
	AccountType      string
	Headers          []string
	SignatureColumns []string
	Mapping          FieldMapping
}

// GenericProfileID identifies the fallback profile that matches any file.
const GenericProfileID = "generic"

// IsGeneric returns true if this is the fallback profile
func (p Profile) IsGeneric() bool {
	return p.ID == GenericProfileID
}

// registry is the ordered list of known profiles. Order matters: detection
// ties keep the first profile encountered.
var registry = []Profile{
	{
		ID:               "chase_credit",
		Name:             "Chase Credit Card",
		Institution:      "Chase",
		AccountType:      "credit_card",
		Headers:          []string{"Transaction Date", "Post Date", "Description", "Category", "Type", "Amount"},
		SignatureColumns: []string{"Transaction Date", "Post Date", "Category", "Type"},
		Mapping: FieldMapping{
			Date:        "Transaction Date",
			Merchant:    "Description",
			Amount:      "Amount",
			Description: "Category",
		},
	},
	{
		ID:               "chase_checking",
		Name:             "Chase Checking/Savings",
		Institution:      "Chase",
		AccountType:      "checking",
		Headers:          []string{"Details", "Posting Date", "Description", "Amount", "Type", "Balance", "Check or Slip #"},
		SignatureColumns: []string{"Details", "Posting Date", "Check or Slip #"},
		Mapping: FieldMapping{
			Date:        "Posting Date",
			Merchant:    "Description",
			Amount:      "Amount",
			Description: "Details",
		},
	},
	{
		ID:               "bofa",
		Name:             "Bank of America",
		Institution:      "Bank of America",
		AccountType:      "checking",
		Headers:          []string{"Posted Date", "Reference Number", "Payee", "Address", "Amount"},
		SignatureColumns: []string{"Reference Number", "Payee", "Address"},
		Mapping: FieldMapping{
			Date:        "Posted Date",
			Merchant:    "Payee",
			Amount:      "Amount",
			Description: "Address",
		},
	},
	{
		ID:          "wells_fargo",
		Name:        "Wells Fargo",
		Institution: "Wells Fargo",
		AccountType: "checking",
		Headers:     []string{"Date", "Amount", "Description"},
		// Generic header set; detected by filename hint only
		SignatureColumns: []string{},
		Mapping: FieldMapping{
			Date:     "Date",
			Merchant: "Description",
			Amount:   "Amount",
		},
	},
	{
		ID:               "capital_one",
		Name:             "Capital One",
		Institution:      "Capital One",
		AccountType:      "credit_card",
		Headers:          []string{"Transaction Date", "Posted Date", "Card No.", "Description", "Category", "Debit", "Credit"},
		SignatureColumns: []string{"Card No.", "Debit", "Credit"},
		Mapping: FieldMapping{
			Date:        "Transaction Date",
			Merchant:    "Description",
			Debit:       "Debit",
			Credit:      "Credit",
			Description: "Category",
		},
	},
	{
		ID:               "citi",
		Name:             "Citi",
		Institution:      "Citi",
		AccountType:      "credit_card",
		Headers:          []string{"Status", "Date", "Description", "Debit", "Credit"},
		SignatureColumns: []string{"Status", "Debit", "Credit"},
		Mapping: FieldMapping{
			Date:     "Date",
			Merchant: "Description",
			Debit:    "Debit",
			Credit:   "Credit",
		},
	},
	{
		ID:               "amex",
		Name:             "American Express",
		Institution:      "American Express",
		AccountType:      "credit_card",
		Headers:          []string{"Date", "Description", "Card Member", "Account #", "Amount"},
		SignatureColumns: []string{"Card Member", "Account #"},
		Mapping: FieldMapping{
			Date:     "Date",
			Merchant: "Description",
			Amount:   "Amount",
		},
	},
	{
		ID:               "discover",
		Name:             "Discover",
		Institution:      "Discover",
		AccountType:      "credit_card",
		Headers:          []string{"Trans. Date", "Post Date", "Description", "Amount", "Category"},
		SignatureColumns: []string{"Trans. Date", "Post Date", "Category"},
		Mapping: FieldMapping{
			Date:        "Trans. Date",
			Merchant:    "Description",
			Amount:      "Amount",
			Description: "Category",
		},
	},
	{
		ID:               "usaa",
		Name:             "USAA",
		Institution:      "USAA",
		AccountType:      "checking",
		Headers:          []string{"Date", "Description", "Original Description", "Category", "Amount"},
		SignatureColumns: []string{"Original Description"},
		Mapping: FieldMapping{
			Date:        "Date",
			Merchant:    "Description",
			Amount:      "Amount",
			Description: "Original Description",
		},
	},
	{
		ID:               "navy_federal",
		Name:             "Navy Federal Credit Union",
		Institution:      "Navy Federal",
		AccountType:      "checking",
		Headers:          []string{"Date", "Description", "Amount", "Balance"},
		SignatureColumns: []string{"Balance"},
		Mapping: FieldMapping{
			Date:     "Date",
			Merchant: "Description",
			Amount:   "Amount",
		},
	},
	{
		ID:               "pnc",
		Name:             "PNC Bank",
		Institution:      "PNC",
		AccountType:      "checking",
		Headers:          []string{"Date", "Description", "Withdrawals", "Deposits", "Balance"},
		SignatureColumns: []string{"Withdrawals", "Deposits", "Balance"},
		Mapping: FieldMapping{
			Date:     "Date",
			Merchant: "Description",
			Debit:    "Withdrawals",
			Credit:   "Deposits",
		},
	},
	{
		ID:               "td_bank",
		Name:             "TD Bank",
		Institution:      "TD Bank",
		AccountType:      "checking",
		Headers:          []string{"Date", "Activity", "Credited", "Debited"},
		SignatureColumns: []string{"Activity", "Credited", "Debited"},
		Mapping: FieldMapping{
			Date:     "Date",
			Merchant: "Activity",
			Debit:    "Debited",
			Credit:   "Credited",
		},
	},
	{
		ID:               "us_bank",
		Name:             "US Bank",
		Institution:      "US Bank",
		AccountType:      "checking",
		Headers:          []string{"Date", "Transaction", "Name", "Memo", "Amount"},
		SignatureColumns: []string{"Transaction", "Name", "Memo"},
		Mapping: FieldMapping{
			Date:        "Date",
			Merchant:    "Name",
			Amount:      "Amount",
			Description: "Memo",
		},
	},
	{
		ID:               "mint",
		Name:             "Mint Export",
		Institution:      "Mint",
		AccountType:      "aggregator",
		Headers:          []string{"Date", "Description", "Original Description", "Amount", "Transaction Type", "Category", "Account Name"},
		SignatureColumns: []string{"Original Description", "Transaction Type", "Account Name"},
		Mapping: FieldMapping{
			Date:        "Date",
			Merchant:    "Description",
			Amount:      "Amount",
			Description: "Original Description",
		},
	},
	{
		ID:               "venmo",
		Name:             "Venmo",
		Institution:      "Venmo",
		AccountType:      "payment_app",
		Headers:          []string{"ID", "Datetime", "Type", "Status", "Note", "From", "To", "Amount (total)", "Amount (fee)"},
		SignatureColumns: []string{"ID", "Datetime", "Type", "Status", "Note", "From", "To"},
		Mapping: FieldMapping{
			Date:        "Datetime",
			Merchant:    "Note",
			Amount:      "Amount (total)",
			Description: "Type",
		},
	},
	{
		ID:               "paypal",
		Name:             "PayPal",
		Institution:      "PayPal",
		AccountType:      "payment_app",
		Headers:          []string{"Date", "Time", "TimeZone", "Name", "Type", "Status", "Currency", "Gross", "Fee", "Net"},
		SignatureColumns: []string{"TimeZone", "Currency", "Gross", "Fee", "Net"},
		Mapping: FieldMapping{
			Date:        "Date",
			Merchant:    "Name",
			Amount:      "Gross",
			Description: "Type",
		},
	},
	{
		ID:               "apple_card",
		Name:             "Apple Card",
		Institution:      "Apple",
		AccountType:      "credit_card",
		Headers:          []string{"Transaction Date", "Clearing Date", "Description", "Merchant", "Category", "Type", "Amount"},
		SignatureColumns: []string{"Clearing Date", "Merchant", "Type"},
		Mapping: FieldMapping{
			Date:        "Transaction Date",
			Merchant:    "Merchant",
			Amount:      "Amount",
			Description: "Category",
		},
	},
	{
		ID:               "sofi",
		Name:             "SoFi",
		Institution:      "SoFi",
		AccountType:      "checking",
		Headers:          []string{"Date", "Description", "Type", "Amount", "Balance"},
		SignatureColumns: []string{"Type", "Balance"},
		Mapping: FieldMapping{
			Date:        "Date",
			Merchant:    "Description",
			Amount:      "Amount",
			Description: "Type",
		},
	},
	{
		ID:               "ally",
		Name:             "Ally Bank",
		Institution:      "Ally",
		AccountType:      "checking",
		Headers:          []string{"Date", "Time", "Amount", "Type", "Description"},
		SignatureColumns: []string{"Time", "Type"},
		Mapping: FieldMapping{
			Date:        "Date",
			Merchant:    "Description",
			Amount:      "Amount",
			Description: "Type",
		},
	},
	{
		ID:               "marcus",
		Name:             "Marcus by Goldman Sachs",
		Institution:      "Goldman Sachs",
		AccountType:      "savings",
		Headers:          []string{"Date", "Description", "Amount", "Balance"},
		SignatureColumns: []string{},
		Mapping: FieldMapping{
			Date:     "Date",
			Merchant: "Description",
			Amount:   "Amount",
		},
	},
	{
		ID:               "alliant",
		Name:             "Alliant Credit Union",
		Institution:      "Alliant",
		AccountType:      "checking",
		Headers:          []string{"Post Date", "Effective Date", "Transaction Type", "Description", "Amount", "Balance"},
		SignatureColumns: []string{"Post Date", "Effective Date", "Transaction Type"},
		Mapping: FieldMapping{
			Date:        "Post Date",
			Merchant:    "Description",
			Amount:      "Amount",
			Description: "Transaction Type",
		},
	},
	{
		ID:               "ynab",
		Name:             "YNAB (You Need A Budget)",
		Institution:      "YNAB",
		AccountType:      "aggregator",
		Headers:          []string{"Account", "Flag", "Date", "Payee", "Category Group/Category", "Category Group", "Category", "Memo", "Outflow", "Inflow", "Cleared"},
		SignatureColumns: []string{"Account", "Flag", "Payee", "Category Group/Category", "Outflow", "Inflow", "Cleared"},
		Mapping: FieldMapping{
			Date:        "Date",
			Merchant:    "Payee",
			Debit:       "Outflow",
			Credit:      "Inflow",
			Description: "Memo",
		},
	},
	{
		ID:               "personal_capital",
		Name:             "Empower (Personal Capital)",
		Institution:      "Empower",
		AccountType:      "aggregator",
		Headers:          []string{"Date", "Account", "Description", "Category", "Tags", "Amount"},
		SignatureColumns: []string{"Account", "Category", "Tags"},
		Mapping: FieldMapping{
			Date:        "Date",
			Merchant:    "Description",
			Amount:      "Amount",
			Description: "Category",
		},
	},
	{
		ID:               GenericProfileID,
		Name:             "Generic Format",
		Institution:      "Unknown",
		AccountType:      "unknown",
		Headers:          []string{"Date", "Amount", "Merchant", "Description"},
		SignatureColumns: []string{},
		Mapping: FieldMapping{
			Date:        "Date",
			Merchant:    "Merchant",
			Amount:      "Amount",
			Description: "Description",
		},
	},
}

// Registry returns the ordered list of known profiles, generic fallback last
func Registry() []Profile {
	return registry
}

// Generic returns the fallback profile
func Generic() Profile {
	return registry[len(registry)-1]
}

// Lookup returns a profile by id
func Lookup(id string) (Profile, bool) {
	for _, p := range registry {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}
