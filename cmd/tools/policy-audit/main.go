// cmd/tools/policy-audit/main.go
//
// policy-audit prints the assistant's effective access policy: the
// role/intent permission matrix, authentication and ownership constraints,
// and which intents have a capability behind them. CI runs it to catch
// bindings that no role can ever reach.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"smartport-assistant/internal/models"
	"smartport-assistant/internal/orchestrator/policy"
	"smartport-assistant/pkg/registry"

	ar "smartport-assistant/internal/capabilities/analytics-report"
	ad "smartport-assistant/internal/capabilities/anomaly-detect"
	ba "smartport-assistant/internal/capabilities/blockchain-audit"
	bs "smartport-assistant/internal/capabilities/booking-status"
	cs "smartport-assistant/internal/capabilities/carrier-score"
	sq "smartport-assistant/internal/capabilities/slot-query"
	tf "smartport-assistant/internal/capabilities/traffic-forecast"
)

// roleOrder fixes the matrix column order, strongest tier first.
var roleOrder = []models.Role{
	models.RoleAdmin,
	models.RoleOperator,
	models.RoleCarrier,
	models.RoleAnon,
}

type report struct {
	GeneratedAt        string              `json:"generated_at"`
	Roles              []string            `json:"roles"`
	Granted            map[string][]string `json:"granted"`
	AuthRequired       []string            `json:"auth_required"`
	OwnershipSensitive []string            `json:"ownership_sensitive"`
	MinimumRole        map[string]string   `json:"minimum_role"`
	Implemented        map[string]string   `json:"implemented"`
	Planned            []string            `json:"planned"`
	Violations         []string            `json:"violations"`
}

func main() {
	jsonOut := flag.Bool("json", false, "emit the audit as JSON")
	flag.Parse()

	reg, err := declaredBindings()
	if err != nil {
		fmt.Printf("Error building capability declarations: %v\n", err)
		os.Exit(1)
	}

	rep := buildReport(reg)

	if *jsonOut {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			fmt.Printf("Error encoding report: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	} else {
		printText(rep)
	}

	if len(rep.Violations) > 0 {
		os.Exit(1)
	}
}

// declaredBindings mirrors the wiring in cmd/assistant with each capability
// declared by name only, which is all an audit needs.
func declaredBindings() (*registry.Registry, error) {
	reg := registry.New()

	for _, b := range []struct {
		name    string
		intents []models.Intent
	}{
		{bs.CapabilityName, []models.Intent{models.IntentBookingStatus}},
		{sq.CapabilityName, []models.Intent{models.IntentSlotAvailability, models.IntentSlotRecommendation}},
		{cs.CapabilityName, []models.Intent{models.IntentCarrierScore}},
		{tf.CapabilityName, []models.Intent{models.IntentTrafficForecast}},
		{ad.CapabilityName, []models.Intent{models.IntentAnomalyDetection}},
		{ba.CapabilityName, []models.Intent{models.IntentBlockchainAudit}},
		{ar.CapabilityName, []models.Intent{models.IntentAnalyticsStress, models.IntentAnalyticsAlerts}},
	} {
		for _, intent := range b.intents {
			if err := reg.Register(intent, registry.Binding{Name: b.name}); err != nil {
				return nil, fmt.Errorf("declaring %s under %s: %w", b.name, intent, err)
			}
		}
	}

	return reg, nil
}

func buildReport(reg *registry.Registry) *report {
	rep := &report{
		GeneratedAt:        time.Now().UTC().Format(time.RFC3339),
		Granted:            map[string][]string{},
		AuthRequired:       []string{},
		OwnershipSensitive: []string{},
		MinimumRole:        map[string]string{},
		Implemented:        map[string]string{},
		Planned:            []string{},
		Violations:         []string{},
	}

	for _, role := range roleOrder {
		rep.Roles = append(rep.Roles, role.String())
		rep.Granted[role.String()] = policy.GrantedIntents(role)
	}

	for _, intent := range operationalIntents() {
		if policy.RequiresAuth(intent) {
			rep.AuthRequired = append(rep.AuthRequired, intent.String())
		}
		if policy.OwnershipSensitive(intent) {
			rep.OwnershipSensitive = append(rep.OwnershipSensitive, intent.String())
		}
		rep.MinimumRole[intent.String()] = policy.MinimumRoleFor(intent).String()

		if binding, ok := reg.Resolve(intent); ok {
			rep.Implemented[intent.String()] = binding.Name
		} else {
			rep.Planned = append(rep.Planned, intent.String())
		}
	}

	// A binding no role can reach is dead configuration.
	for _, intent := range reg.Intents() {
		reachable := false
		for _, role := range roleOrder {
			if role == models.RoleAnon {
				continue
			}
			if policy.IsGranted(role, intent) {
				reachable = true
				break
			}
		}
		if !policy.RequiresAuth(intent) && policy.IsGranted(models.RoleAnon, intent) {
			reachable = true
		}
		if !reachable {
			binding, _ := reg.Resolve(intent)
			rep.Violations = append(rep.Violations,
				fmt.Sprintf("intent %s is bound to %s but granted to no role", intent, binding.Name))
		}
	}

	return rep
}

// operationalIntents returns the non-meta vocabulary in stable order.
func operationalIntents() []models.Intent {
	var intents []models.Intent
	for intent := range models.AllIntents {
		if intent.IsMeta() {
			continue
		}
		intents = append(intents, intent)
	}
	sort.Slice(intents, func(i, j int) bool { return intents[i] < intents[j] })
	return intents
}

func printText(rep *report) {
	fmt.Println("Smart Port assistant - access policy audit")
	fmt.Printf("generated at %s\n\n", rep.GeneratedAt)

	fmt.Println("PERMISSION MATRIX")
	fmt.Printf("%-26s", "INTENT")
	for _, role := range rep.Roles {
		fmt.Printf("%-10s", role)
	}
	fmt.Printf("%-10s%-6s%s\n", "MIN ROLE", "AUTH", "OWNED")

	for _, intent := range operationalIntents() {
		fmt.Printf("%-26s", intent)
		for _, role := range roleOrder {
			fmt.Printf("%-10s", mark(policy.IsGranted(role, intent)))
		}
		fmt.Printf("%-10s%-6s%s\n",
			rep.MinimumRole[intent.String()],
			mark(policy.RequiresAuth(intent)),
			mark(policy.OwnershipSensitive(intent)),
		)
	}
	fmt.Println("\nmeta intents (help, health_check, smalltalk, unknown) are handled by the orchestrator and always allowed")

	fmt.Printf("\nREGISTRY COVERAGE\n")
	fmt.Printf("implemented (%d):\n", len(rep.Implemented))
	for _, intent := range sortedKeys(rep.Implemented) {
		fmt.Printf("  %-26s-> %s\n", intent, rep.Implemented[intent])
	}
	fmt.Printf("planned (%d): %s\n", len(rep.Planned), strings.Join(rep.Planned, ", "))

	fmt.Println()
	if len(rep.Violations) == 0 {
		fmt.Println("All checks passed.")
		return
	}
	for _, v := range rep.Violations {
		fmt.Printf("VIOLATION: %s\n", v)
	}
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
