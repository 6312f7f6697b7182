package notify

import (
	"fmt"
	"strings"
	"text/template"
)

const (
	TemplateOrderCreated      = "ORDER_CREATED"
	TemplateOrderPaid         = "ORDER_PAID"
	TemplateOrderCancelled    = "ORDER_CANCELLED"
	TemplateOrderExpired      = "ORDER_EXPIRED"
	TemplateOrderShipped      = "ORDER_SHIPPED"
	TemplateOrderReceived     = "ORDER_RECEIVED"
	TemplateExtensionRequest  = "EXTENSION_REQUESTED"
	TemplateExtensionDecided  = "EXTENSION_DECIDED"
	TemplateReturnRequested   = "RETURN_REQUESTED"
	TemplateReturnInTransit   = "RETURN_IN_TRANSIT"
	TemplateReturnDecided     = "RETURN_DECIDED"
	TemplateBuyoutRequested   = "BUYOUT_REQUESTED"
	TemplateBuyoutDecided     = "BUYOUT_DECIDED"
	TemplateOrderForceClosed  = "ORDER_FORCE_CLOSED"
	TemplateDisputeOpened     = "DISPUTE_OPENED"
	TemplateDisputeResponded  = "DISPUTE_RESPONDED"
	TemplateDisputeEscalated  = "DISPUTE_ESCALATED"
	TemplateDisputeAppealed   = "DISPUTE_APPEALED"
	TemplateDisputeResolved   = "DISPUTE_RESOLVED"
	TemplateDisputeCountdown  = "DISPUTE_COUNTDOWN"
	TemplateCreditChanged     = "CREDIT_CHANGED"
	TemplateAccountRestricted = "ACCOUNT_RESTRICTED"
	TemplateProofUploaded     = "PROOF_UPLOADED"
	TemplateOrderMessage      = "ORDER_MESSAGE"
)

var defaultTemplates = map[string][2]string{
	TemplateOrderCreated:      {"New order {{.order_no}}", "Order {{.order_no}} was placed and is waiting for payment."},
	TemplateOrderPaid:         {"Order {{.order_no}} paid", "Payment for order {{.order_no}} was confirmed. Please ship it."},
	TemplateOrderCancelled:    {"Order {{.order_no}} cancelled", "Order {{.order_no}} was cancelled.{{if .reason}} Reason: {{.reason}}{{end}}"},
	TemplateOrderExpired:      {"Order {{.order_no}} expired", "Order {{.order_no}} was not paid in time and has been cancelled."},
	TemplateOrderShipped:      {"Order {{.order_no}} shipped", "Order {{.order_no}} was shipped via {{.carrier}}, tracking number {{.tracking_no}}."},
	TemplateOrderReceived:     {"Order {{.order_no}} received", "The user confirmed receipt of order {{.order_no}}."},
	TemplateExtensionRequest:  {"Extension requested for {{.order_no}}", "The user asked to extend order {{.order_no}} by {{.months}} month(s)."},
	TemplateExtensionDecided:  {"Extension {{.decision}}", "Your extension request for order {{.order_no}} was {{.decision}}.{{if .remark}} {{.remark}}{{end}}"},
	TemplateReturnRequested:   {"Return requested for {{.order_no}}", "The user asked to return order {{.order_no}}.{{if .reason}} Reason: {{.reason}}{{end}}"},
	TemplateReturnInTransit:   {"Return of {{.order_no}} in transit", "The return of order {{.order_no}} is on its way via {{.carrier}}, tracking number {{.tracking_no}}."},
	TemplateReturnDecided:     {"Return {{.decision}}", "Your return request for order {{.order_no}} was {{.decision}}.{{if .remark}} {{.remark}}{{end}}"},
	TemplateBuyoutRequested:   {"Buyout requested for {{.order_no}}", "The user asked to buy out order {{.order_no}}{{if .amount}} for {{.amount}}{{end}}."},
	TemplateBuyoutDecided:     {"Buyout {{.decision}}", "Your buyout request for order {{.order_no}} was {{.decision}}.{{if .remark}} {{.remark}}{{end}}"},
	TemplateOrderForceClosed:  {"Order {{.order_no}} closed", "Order {{.order_no}} was closed by the platform.{{if .reason}} Reason: {{.reason}}{{end}}"},
	TemplateDisputeOpened:     {"Dispute opened on {{.order_no}}", "A dispute was opened on order {{.order_no}}. Please respond before {{.deadline}}."},
	TemplateDisputeResponded:  {"Dispute on {{.order_no}} updated", "The other party {{if eq .accepted \"true\"}}accepted the proposal{{else}}proposed {{.option}}{{end}} on order {{.order_no}}."},
	TemplateDisputeEscalated:  {"Dispute on {{.order_no}} escalated", "The dispute on order {{.order_no}} was handed to the platform for arbitration."},
	TemplateDisputeAppealed:   {"Dispute on {{.order_no}} appealed", "The ruling on order {{.order_no}} was appealed and will be reviewed by the panel."},
	TemplateDisputeResolved:   {"Dispute on {{.order_no}} resolved", "The platform ruled {{.option}} on order {{.order_no}}.{{if .remark}} {{.remark}}{{end}}"},
	TemplateDisputeCountdown:  {"Dispute on {{.order_no}}: {{.hours_left}}h left", "The dispute on order {{.order_no}} escalates to the platform in about {{.hours_left}} hour(s) unless it is settled."},
	TemplateCreditChanged:     {"Credit score changed", "Your credit score changed by {{.delta}} following the ruling on order {{.order_no}}."},
	TemplateAccountRestricted: {"Account restricted", "Your account is restricted until {{.until}} following the ruling on order {{.order_no}}."},
	TemplateProofUploaded:     {"New evidence on {{.order_no}}", "The other party uploaded {{.proof_type}} evidence on order {{.order_no}}."},
	TemplateOrderMessage:      {"New message on {{.order_no}}", "{{.sender}} wrote on order {{.order_no}}: {{.snippet}}"},
}

// Catalog renders notification templates keyed by code
type Catalog struct {
	templates map[string]*template.Template
}

func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultTemplates)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog parses subject/body pairs. Missing variables render empty.
func NewCatalog(src map[string][2]string) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]*template.Template, len(src))}
	for code, pair := range src {
		t := template.New(code).Option("missingkey=zero")
		if _, err := t.New("subject").Parse(pair[0]); err != nil {
			return nil, fmt.Errorf("notify: template %s subject: %w", code, err)
		}
		if _, err := t.New("body").Parse(pair[1]); err != nil {
			return nil, fmt.Errorf("notify: template %s body: %w", code, err)
		}
		c.templates[code] = t
	}
	return c, nil
}

func (c *Catalog) Render(code string, vars map[string]string) (subject, body string, err error) {
	t, ok := c.templates[code]
	if !ok {
		return "", "", fmt.Errorf("notify: unknown template %q", code)
	}
	if vars == nil {
		vars = map[string]string{}
	}
	var sb, bb strings.Builder
	if err := t.ExecuteTemplate(&sb, "subject", vars); err != nil {
		return "", "", fmt.Errorf("notify: render %s: %w", code, err)
	}
	if err := t.ExecuteTemplate(&bb, "body", vars); err != nil {
		return "", "", fmt.Errorf("notify: render %s: %w", code, err)
	}
	return sb.String(), bb.String(), nil
}
