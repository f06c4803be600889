package http

// Static copy for the marketing pages.

const (
	bankName     = "Evergreen Bank"
	supportEmail = "evergreenbank7@gmail.com"
	supportPhone = "1-800-123-4567"
)

type FAQ struct {
	Question string
	Answer   string
}

var faqs = []FAQ{
	{
		Question: "How do I open an account?",
		Answer:   "Visit our nearest branch with a valid ID, proof of address, and a minimum deposit of Ksh 1000. You can also start online: register, complete your KYC profile and open an account from your dashboard.",
	},
	{
		Question: "How do I open an account online?",
		Answer:   "Create a profile, sign in and choose Accounts in your dashboard. Pick an account type and currency; the account number is shown as soon as it is created.",
	},
	{
		Question: "What are the current interest rates?",
		Answer:   "Rates depend on the account type and balance. Contact customer service for the most up-to-date rates.",
	},
	{
		Question: "How can I apply for a loan?",
		Answer:   "Provide your personal information, employment details and financial history. You can apply online or visit any of our branches for assistance.",
	},
	{
		Question: "How do I reset my online banking password?",
		Answer:   "Contact customer service from your registered email address and we will guide you through the reset.",
	},
	{
		Question: "What fees do you charge for account maintenance?",
		Answer:   "Each account type has its own fee structure. Contact customer service for the full fee schedule.",
	},
}

type Milestone struct {
	Year string
	Text string
}

var milestones = []Milestone{
	{"2001", "Evergreen Bank was founded with the vision of a bank that puts customer service and sustainable practices first."},
	{"2010", "We expanded nationwide, opening branches in key locations."},
	{"2015", "Our online banking platform brought everyday banking to a wider audience."},
	{"2020", "Our first major green initiative partnered with local communities on renewable energy projects."},
	{"Today", "We continue to lead in green banking with products that benefit customers and the environment."},
}

var dataProtection = []FAQ{
	{"Encryption", "All sensitive data is encrypted in transit and at rest."},
	{"Access control", "Only authorized personnel can reach your information. Regular audits and monitoring keep it that way."},
	{"Regular assessments", "We run security assessments and vulnerability testing to address threats before they matter."},
	{"Compliance", "We comply with the data protection regulations that apply to us and handle your data responsibly."},
	{"Incident response", "A tested response plan contains and mitigates any incident quickly."},
}

type ContactChannel struct {
	Title    string
	Detail   string
	Subtitle string
}

var contactChannels = []ContactChannel{
	{"Phone", supportPhone, "Mon-Fri 8am-6pm"},
	{"Email", supportEmail, "24/7 Support"},
	{"Location", "123 Bank Street, Suite 100", "Nairobi, Kenya"},
	{"Working Hours", "Monday - Friday: 8AM - 6PM", "Saturday: 9AM - 2PM"},
}
