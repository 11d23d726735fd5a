package conversation

// stepGuide describes what a capture step asks for. Both resolver tiers and
// the session opener read from this catalog.
type stepGuide struct {
	Question string
	Reprompt string
	Fields   []string
	Guidance string
}

var stepCatalog = map[Step]stepGuide{
	StepAwaitingName: {
		Question: "Before we dive in, what's your name?",
		Reprompt: "I didn't quite catch your name. Could you share your first and last name?",
		Fields:   []string{"first_name", "last_name"},
		Guidance: "Collect the visitor's name. First word is first_name, the rest is last_name. Greetings are not names.",
	},
	StepAwaitingCompany: {
		Question: "What company are you with?",
		Reprompt: "Could you tell me the name of your company?",
		Fields:   []string{"company_name"},
		Guidance: "Collect the company or business name.",
	},
	StepAwaitingRole: {
		Question: "What's your role or title there?",
		Reprompt: "What's your role or job title?",
		Fields:   []string{"role_title"},
		Guidance: "Collect the visitor's role or job title.",
	},
	StepAwaitingIndustry: {
		Question: "Which industry is your business in?",
		Reprompt: "Which industry are you in? For example: healthcare, retail, logistics, professional services or SaaS.",
		Fields:   []string{"industry_sector"},
		Guidance: "Collect the industry sector.",
	},
	StepAwaitingCompanySize: {
		Question: "Roughly how many people work at the company?",
		Reprompt: "About how many employees does the company have? A rough range like 10-50 is fine.",
		Fields:   []string{"company_size"},
		Guidance: "Collect headcount or a size range.",
	},
	StepAwaitingLocation: {
		Question: "Where is the business based?",
		Reprompt: "Which city or region is the business based in?",
		Fields:   []string{"location"},
		Guidance: "Collect the city, region or country.",
	},
	StepAwaitingWebsite: {
		Question: "What's your company website? A social profile link works too.",
		Reprompt: "Could you share your website URL or a social profile link?",
		Fields:   []string{"website_url", "social_links"},
		Guidance: "Collect the website URL. LinkedIn, X, Instagram or Facebook links go in social_links.",
	},
	StepAwaitingNeeds: {
		Question: "What's the biggest operational headache you'd like to automate?",
		Reprompt: "Could you describe the challenge in a bit more detail? For example: \"we spend hours copying orders between systems\".",
		Fields:   []string{"pain_points"},
		Guidance: "Collect the pain points or processes they want automated.",
	},
	StepAwaitingBudget: {
		Question: "Do you have a budget range or timeline in mind?",
		Reprompt: "A rough range helps us tailor the proposal, e.g. \"$5k-$10k, starting next quarter\".",
		Fields:   []string{"budget_timeline"},
		Guidance: "Collect budget and/or timeline expectations.",
	},
	StepAwaitingContactChoice: {
		Question: "Would you like a free discovery call, a workflow audit, or both?",
		Reprompt: "We offer a free discovery call and a workflow audit. Which would you like: the call, the audit, or both?",
		Fields:   []string{"notes"},
		Guidance: "Ask which offering they want: discovery call, workflow audit or both. Record the choice in notes.",
	},
	StepAwaitingEmail: {
		Question: "What's the best email to reach you?",
		Reprompt: "That email doesn't look right. Please enter a valid work email address.",
		Fields:   []string{"email"},
		Guidance: "Collect a valid email. Disposable inboxes are not accepted.",
	},
	StepAwaitingPhone: {
		Question: "And a phone number? Feel free to say skip if you'd rather not.",
		Reprompt: "Please enter a valid phone number including area code, or type skip.",
		Fields:   []string{"phone"},
		Guidance: "Collect a phone number. The visitor may decline; then advance without one.",
	},
	StepAwaitingAdditionalInfo: {
		Question: "Anything else we should know before we reach out?",
		Reprompt: "Anything else we should know before we reach out?",
		Fields:   []string{"notes"},
		Guidance: "Accept anything, append it to notes and complete the conversation.",
	},
}

const (
	completionReply = "Thanks! We've got everything we need and someone from our team will be in touch shortly. In the meantime you can book a call or browse our case studies."
	genericReply    = "How can I help you today?"
)

func questionFor(step Step) string {
	return stepCatalog[step].Question
}

func repromptFor(step Step) string {
	if guide, ok := stepCatalog[step]; ok {
		return guide.Reprompt
	}
	return genericReply
}
