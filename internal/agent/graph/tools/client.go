package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/plan-assist-core/server/internal/agent/model"
	errx "github.com/plan-assist-core/server/internal/core/error"
)

// Invoker calls a tool by name with JSON arguments and returns JSON output.
// Registry calls tools in process; the MCP invoker goes through an MCP client.
type Invoker interface {
	Invoke(ctx context.Context, name, argumentsInJSON string) (string, error)
}

// Client renders tool outputs as the text the aggregator and prompts use.
type Client struct {
	invoker Invoker
}

func NewClient(invoker Invoker) *Client {
	return &Client{invoker: invoker}
}

func (c *Client) call(ctx context.Context, name string, in, out any) error {
	args, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s arguments: %w", name, err)
	}
	raw, err := c.invoker.Invoke(ctx, name, string(args))
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errx.WrapTool(name, fmt.Errorf("decode output: %w", err))
	}
	return nil
}

func notFound(name string) error {
	return errx.WrapTool(name, errx.ErrNotFound)
}

func (c *Client) SearchPlans(ctx context.Context, query, planType string) (string, error) {
	var out SearchPlansOutput
	if err := c.call(ctx, ToolSearchPlans, SearchPlansInput{Query: query, PlanType: planType}, &out); err != nil {
		return "", err
	}
	if out.Status != StatusSuccess || len(out.Plans) == 0 {
		return "", notFound(ToolSearchPlans)
	}
	lines := make([]string, 0, len(out.Plans))
	for _, p := range out.Plans {
		lines = append(lines, fmt.Sprintf("- %s... (Source: %s)", truncateRunes(p.Content, 100), p.Source))
	}
	return fmt.Sprintf("Found %d relevant plans:\n%s", out.Count, strings.Join(lines, "\n")), nil
}

func (c *Client) GetPlanDetails(ctx context.Context, planName string) (string, error) {
	var out GetPlanDetailsOutput
	if err := c.call(ctx, ToolGetPlanDetails, GetPlanDetailsInput{PlanName: planName}, &out); err != nil {
		return "", err
	}
	if out.Status != StatusSuccess || out.Plan == nil {
		return "", notFound(ToolGetPlanDetails)
	}
	return FormatPlan(*out.Plan, planName), nil
}

func (c *Client) ComparePlans(ctx context.Context, plan1, plan2 string) (string, error) {
	var out ComparePlansOutput
	if err := c.call(ctx, ToolComparePlans, ComparePlansInput{Plan1: plan1, Plan2: plan2}, &out); err != nil {
		return "", err
	}
	if out.Status != StatusSuccess {
		return "", notFound(ToolComparePlans)
	}
	return fmt.Sprintf("Comparison:\n\n%s:\n%s\n\n%s:\n%s\n\n%s",
		nameOr(out.Plan1, plan1), formatPlanFields(out.Plan1),
		nameOr(out.Plan2, plan2), formatPlanFields(out.Plan2),
		out.Recommendation,
	), nil
}

func (c *Client) RecommendPlan(ctx context.Context, userType, usage string, budget *float64) (string, error) {
	var out RecommendPlanOutput
	in := RecommendPlanInput{UserType: userType, DataUsage: usage, Budget: budget}
	if err := c.call(ctx, ToolRecommendPlan, in, &out); err != nil {
		return "", err
	}
	if out.Status != StatusSuccess {
		return "", notFound(ToolRecommendPlan)
	}
	budgetText := "Flexible"
	if b := out.UserProfile.Budget; b != nil && *b > 0 {
		budgetText = fmt.Sprintf("%g", *b)
	}
	recs := make([]string, 0, len(out.Recommendations))
	for _, r := range out.Recommendations {
		recs = append(recs, "• "+r)
	}
	return fmt.Sprintf("Based on your profile:\n- User Type: %s\n- Data Usage: %s\n- Budget: ₹%s\n\nRecommended Plans:\n%s",
		titleCase(out.UserProfile.Type), titleCase(out.UserProfile.Usage), budgetText, strings.Join(recs, "\n"),
	), nil
}

func (c *Client) Check5GAvailability(ctx context.Context, location string) (string, error) {
	var out Check5GOutput
	if err := c.call(ctx, ToolCheck5GAvailability, Check5GInput{Location: location}, &out); err != nil {
		return "", err
	}
	if out.Status != StatusSuccess {
		return "", notFound(ToolCheck5GAvailability)
	}
	plans := make([]string, 0, len(out.CompatiblePlans))
	for _, p := range out.CompatiblePlans {
		plans = append(plans, "• "+p)
	}
	return fmt.Sprintf("5G Status in %s:\n%s\n\nCompatible Plans:\n%s",
		out.Location, out.Message, strings.Join(plans, "\n"),
	), nil
}

// ====================== Formatting ======================

// FormatPlan renders a plan in the mobile or fiber layout; knowledge-base
// fallbacks are shown as free-text details.
func FormatPlan(p model.Plan, requested string) string {
	switch {
	case p.IsMobile():
		return fmt.Sprintf("Plan: %s\nData: %s\nValidity: %s\nVoice: %s\nSMS: %s\nBenefits: %s",
			p.Name, p.Data, p.Validity, p.Voice, orNA(p.SMS), strings.Join(p.Benefits, ", "))
	case p.IsFiber():
		return fmt.Sprintf("Plan: %s\nSpeed: %s\nData: %s\nVoice: %s\nOTT Apps: %s\nBenefits: %s",
			p.Name, p.Speed, or(p.Data, "Unlimited"), or(p.Voice, "Unlimited calls"),
			strings.Join(p.OTT, ", "), strings.Join(p.Benefits, ", "))
	}
	details := p.Details
	if details == "" {
		details = "No detailed information available"
	}
	return fmt.Sprintf("Plan: %s\nDetails: %s", nameOr(p, requested), details)
}

// formatPlanFields lists the populated fields of one side of a comparison.
func formatPlanFields(p model.Plan) string {
	if p.Details == NotFoundDetails {
		return "Details not available"
	}
	var lines []string
	add := func(label, v string) {
		if v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", label, v))
		}
	}
	add("Data", p.Data)
	add("Speed", p.Speed)
	add("Validity", p.Validity)
	add("Voice", p.Voice)
	add("Sms", p.SMS)
	add("Ott", strings.Join(p.OTT, ", "))
	add("Benefits", strings.Join(p.Benefits, ", "))
	add("Details", p.Details)
	if len(lines) == 0 {
		return "No details available"
	}
	return strings.Join(lines, "\n")
}

func nameOr(p model.Plan, fallback string) string {
	return or(p.Name, fallback)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orNA(v string) string {
	return or(v, "N/A")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
