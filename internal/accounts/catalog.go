package accounts

import "evergreen/internal/core"

// Product describes an account type on the "open account" panel.
type Product struct {
	Type        core.AccountType
	Name        string
	Description string
	Features    []string
}

var Products = []Product{
	{
		Type:        core.AccountSavings,
		Name:        "Savings Account",
		Description: "Earn interest on your savings with flexible access",
		Features:    []string{"Competitive interest rates", "No minimum balance", "Free withdrawals"},
	},
	{
		Type:        core.AccountFixedDeposit,
		Name:        "Fixed Deposit",
		Description: "Lock in higher returns for a fixed period",
		Features:    []string{"Higher interest rates", "Flexible terms", "Guaranteed returns"},
	},
	{
		Type:        core.AccountBusiness,
		Name:        "Business Account",
		Description: "Manage your business finances with ease",
		Features:    []string{"Multiple users", "Business tools", "Priority support"},
	},
}
