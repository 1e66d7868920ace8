package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// InsightGenerator turns computed receivables facts into short narrative text.
// Implementations are slow and may fail; callers bound and replace them.
type InsightGenerator interface {
	CashflowInsight(ctx context.Context, facts CashflowFacts) (*Insight, error)
	CustomerInsight(ctx context.Context, facts CustomerFacts) (*Insight, error)
}

// Insight is the structured text returned by the model.
type Insight struct {
	Headline        string   `json:"headline" jsonschema:"description=One sentence summary of the position"`
	Summary         string   `json:"summary" jsonschema:"description=Two or three sentences explaining the figures"`
	Recommendations []string `json:"recommendations" jsonschema:"description=Concrete collection actions with the most urgent first"`
}

// CashflowFacts are the tenant-level figures an insight may mention. Amounts
// are pre-formatted so the model never does arithmetic.
type CashflowFacts struct {
	CompanyName          string   `json:"company_name,omitempty"`
	TotalReceivable      string   `json:"total_receivable"`
	TotalAdvances        string   `json:"total_advances"`
	Receivable0To30      string   `json:"receivable_0_30"`
	Receivable31To60     string   `json:"receivable_31_60"`
	Receivable61To90     string   `json:"receivable_61_90"`
	Receivable90Plus     string   `json:"receivable_90_plus"`
	CustomerCount        int      `json:"customer_count"`
	OverdueCustomerCount int      `json:"overdue_customer_count"`
	TopOverdueCustomers  []string `json:"top_overdue_customers"`
}

type CustomerFacts struct {
	CustomerName     string `json:"customer_name"`
	Outstanding      string `json:"outstanding"`
	DaysOverdue      int    `json:"days_overdue"`
	OpenInvoiceCount int    `json:"open_invoice_count"`
	OldestBucket     string `json:"oldest_bucket"`
	RiskLevel        string `json:"risk_level"`
}

type Agent struct {
	client *openai.Client
	model  string
}

func NewAgent(apiKey, model string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(shared.ChatModelGPT4oMini)
	}
	return &Agent{client: &client, model: model}
}

func (a *Agent) CashflowInsight(ctx context.Context, facts CashflowFacts) (*Insight, error) {
	return a.generate(ctx, "cashflow_insight", `You are a credit controller reviewing a company's accounts receivable.
Write a brief insight about the receivables position below.
Rules:
1. Use ONLY the figures provided; do not compute new totals.
2. Quote amounts exactly as given.
3. Mention aging concentration when 61+ day buckets are material.
4. Give at most three recommendations.`, facts)
}

func (a *Agent) CustomerInsight(ctx context.Context, facts CustomerFacts) (*Insight, error) {
	return a.generate(ctx, "customer_insight", `You are a credit controller reviewing one customer's account.
Write a brief insight about the customer below.
Rules:
1. Use ONLY the figures provided.
2. Quote amounts exactly as given.
3. Match the tone to the risk level.
4. Give at most three recommendations.`, facts)
}

func (a *Agent) generate(ctx context.Context, name, instructions string, facts any) (*Insight, error) {
	factsJSON, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal facts: %w", err)
	}
	prompt := fmt.Sprintf("%s\n\nFacts:\n%s", instructions, factsJSON)

	schemaMap, err := insightSchema()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(a.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        name,
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A short receivables insight"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}
	return ParseInsight(content)
}

// ParseInsight decodes and checks a model response.
func ParseInsight(content string) (*Insight, error) {
	var insight Insight
	if err := json.Unmarshal([]byte(content), &insight); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	insight.Headline = strings.TrimSpace(insight.Headline)
	insight.Summary = strings.TrimSpace(insight.Summary)
	if insight.Headline == "" {
		return nil, fmt.Errorf("insight has no headline")
	}
	if insight.Recommendations == nil {
		insight.Recommendations = []string{}
	}
	return &insight, nil
}

func insightSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(&Insight{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
