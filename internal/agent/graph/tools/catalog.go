package tools

import (
	"github.com/plan-assist-core/server/internal/agent/model"
)

// Result statuses carried in every tool output.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
)

// Plan types accepted by search_plans.
const (
	PlanTypeMobile   = "mobile"
	PlanTypeFiber    = "fiber"
	PlanTypePostpaid = "postpaid"
	PlanTypeBusiness = "business"
	PlanTypeAll      = "all"
)

// PlanCatalog is the fixed set of plans get_plan_details can answer from
// without a knowledge search. Keyed by price.
var PlanCatalog = map[string]model.Plan{
	"155": {
		ID: "155", Name: "₹155 Plan", Type: PlanTypeMobile, Price: 155,
		Data: "2GB/day", Validity: "24 days", Voice: "Unlimited", SMS: "300 total",
		Benefits: []string{"Jio Apps"},
	},
	"199": {
		ID: "199", Name: "₹199 Plan", Type: PlanTypeMobile, Price: 199,
		Data: "1.5GB/day", Validity: "28 days", Voice: "Unlimited", SMS: "100/day",
		Benefits: []string{"Jio Apps", "5G Access", "Weekend Data Rollover"},
	},
	"239": {
		ID: "239", Name: "₹239 Plan", Type: PlanTypeMobile, Price: 239,
		Data: "1.5GB/day", Validity: "28 days", Voice: "Unlimited", SMS: "100/day",
		Benefits: []string{"Jio Apps", "Unlimited 5G"},
	},
	"299": {
		ID: "299", Name: "₹299 Plan", Type: PlanTypeMobile, Price: 299,
		Data: "2GB/day", Validity: "28 days", Voice: "Unlimited", SMS: "100/day",
		Benefits: []string{"Jio Apps", "5G Access", "Weekend Data Rollover", "JioCloud Storage"},
	},
	"399": {
		ID: "399", Name: "₹399 Plan", Type: PlanTypeMobile, Price: 399,
		Data: "3GB/day", Validity: "56 days", Voice: "Unlimited", SMS: "100/day",
		Benefits: []string{"Jio Apps", "5G Access", "Weekend Data Rollover", "JioCloud Storage", "JioSecurity"},
	},
	"599": {
		ID: "599", Name: "₹599 Plan", Type: PlanTypeMobile, Price: 599,
		Data: "3GB/day", Validity: "84 days", Voice: "Unlimited", SMS: "100/day",
		Benefits: []string{"Jio Apps", "Unlimited 5G", "JioCloud Storage", "JioCinema"},
	},
	"699": {
		ID: "699", Name: "JioFiber ₹699", Type: PlanTypeFiber, Price: 699,
		Speed: "30 Mbps", Data: "Unlimited", Voice: "Unlimited calls",
		Benefits: []string{"Free Router", "Free Installation"},
	},
	"999": {
		ID: "999", Name: "JioFiber ₹999", Type: PlanTypeFiber, Price: 999,
		Speed: "100 Mbps", Data: "Unlimited", Voice: "Unlimited calls",
		OTT:      []string{"Netflix", "Amazon Prime", "JioCinema Premium"},
		Benefits: []string{"Free Router", "Free Installation", "No Security Deposit"},
	},
	"1499": {
		ID: "1499", Name: "JioFiber ₹1499", Type: PlanTypeFiber, Price: 1499,
		Speed: "300 Mbps", Data: "Unlimited", Voice: "Unlimited calls",
		OTT:      []string{"Netflix", "Amazon Prime", "Disney+ Hotstar", "JioCinema Premium"},
		Benefits: []string{"Free Router", "Free Installation", "No Security Deposit"},
	},
	"799": {
		ID: "799", Name: "Family Postpaid ₹799", Type: PlanTypePostpaid, Price: 799,
		Data: "150GB + 3 add-on SIMs", Validity: "Monthly bill cycle", Voice: "Unlimited", SMS: "100/day",
		OTT:      []string{"Netflix Basic", "Amazon Prime"},
		Benefits: []string{"Data Rollover up to 200GB", "Unlimited 5G"},
	},
	"1299": {
		ID: "1299", Name: "Family Postpaid ₹1299", Type: PlanTypePostpaid, Price: 1299,
		Data: "300GB + 3 add-on SIMs", Validity: "Monthly bill cycle", Voice: "Unlimited", SMS: "100/day",
		OTT:      []string{"Netflix Standard", "Amazon Prime", "Disney+ Hotstar"},
		Benefits: []string{"Data Rollover up to 500GB", "Unlimited 5G", "International Roaming Pack"},
	},
}

type profileKey struct {
	userType string
	usage    string
}

// recommendations maps a (user type, data usage) profile to suggestions. The
// first number in each suggestion is its price, used for budget filtering.
var recommendations = map[profileKey][]string{
	{"student", "low"}:         {"₹199 - Perfect for basic needs", "₹155 - 2GB/day for 24 days"},
	{"student", "medium"}:      {"₹299 - 2GB/day ideal for streaming", "₹399 - Longer validity saves money"},
	{"student", "high"}:        {"₹399 - 3GB/day for heavy usage", "₹599 - 84 days validity"},
	{"professional", "low"}:    {"₹299 - Reliable for work", "₹399 - Better value"},
	{"professional", "medium"}: {"₹399 - 3GB/day for video calls", "JioFiber ₹999 for home office"},
	{"professional", "high"}:   {"₹599 - Heavy usage plan", "JioFiber ₹1499 - 300 Mbps"},
	{"family", "low"}:          {"₹399 - Shareable data", "Family Postpaid ₹799"},
	{"family", "medium"}:       {"Family Postpaid ₹799", "JioFiber ₹999 + Mobile"},
	{"family", "high"}:         {"JioFiber ₹1499", "Family Postpaid ₹1299"},
}

var (
	defaultRecommendations = []string{"₹299 - Balanced plan", "₹399 - Popular choice"}
	withinBudgetFallback   = []string{"₹199 - Within budget"}
)

// citiesWith5G is matched by substring against the requested location.
var citiesWith5G = []string{
	"delhi", "mumbai", "bangalore", "chennai", "kolkata", "hyderabad",
	"pune", "ahmedabad", "jaipur", "lucknow", "kanpur", "nagpur",
	"visakhapatnam", "bhopal", "patna", "ludhiana", "agra", "nashik",
	"faridabad", "meerut", "rajkot", "varanasi", "srinagar", "aurangabad",
}

const comparisonAdvice = "Based on the comparison, choose according to your data needs and budget."
