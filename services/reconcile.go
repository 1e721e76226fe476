package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"iphone-price-catalog/models"
	"iphone-price-catalog/utils"
)

const noPaymentMarker = "お支払い不要"

var (
	periodRegexp      = regexp.MustCompile(`(\d+)\s*[~〜]\s*(\d+)\s*回`)
	phaseAmountRegexp = regexp.MustCompile(`(\d[\d,]*)円`)
	periodStartRegexp = regexp.MustCompile(`^(\d+)`)
)

type phaseProbe struct {
	period string
	amount *regexp.Regexp
	free   *regexp.Regexp
}

// Periods probed in the page text when no schedule rows are found.
var phaseProbes = newPhaseProbes([][2]int{{1, 12}, {13, 24}, {25, 48}})

func newPhaseProbes(ranges [][2]int) []phaseProbe {
	probes := make([]phaseProbe, 0, len(ranges))
	for _, r := range ranges {
		prefix := fmt.Sprintf(`(?:^|\D)%d\s*[~〜]\s*%d\s*回`, r[0], r[1])
		probes = append(probes, phaseProbe{
			period: FormatPeriod(r[0], r[1]),
			amount: regexp.MustCompile(prefix + `.*?(\d[\d,]*)円`),
			free:   regexp.MustCompile(prefix + `.*?` + noPaymentMarker),
		})
	}
	return probes
}

// FormatPeriod renders an installment range as "1〜12回".
func FormatPeriod(start, end int) string {
	return fmt.Sprintf("%d〜%d回", start, end)
}

// ReconcileMonthly overrides computed monthly payments with independently
// observed per-model figures when the observed figure is strictly lower,
// recomputing the dependent rent. It returns the number of items changed.
// Applying it twice with the same observations changes nothing further.
func ReconcileMonthly(items []*models.PricedItem, observed map[string]int) int {
	changed := 0
	for _, it := range items {
		obs, ok := observed[it.Model]
		if !ok || obs < 0 {
			continue
		}
		if obs < it.MonthlyPayment {
			it.MonthlyPayment = obs
			it.PriceEffectiveRent = obs * programTerm
			changed++
		}
	}
	return changed
}

// BuildPhases builds a phased payment schedule from row texts, each expected
// to hold a "<start>〜<end>回" period and an amount or the no-payment marker.
// The first row seen for a period wins. When no row yields a phase, the
// fixed periods are probed in content instead. The result is sorted by
// period start.
func BuildPhases(rows []string, content string) []models.PaymentPhase {
	var phases []models.PaymentPhase
	for _, row := range rows {
		if p, ok := parsePhaseRow(utils.Fold(row)); ok {
			phases = append(phases, p)
		}
	}
	phases = NormalizePhases(phases)

	if len(phases) == 0 {
		phases = probePhases(utils.Fold(content))
	}
	return phases
}

// NormalizePhases drops repeated periods, keeping the first, and sorts the
// schedule by period start. It is idempotent.
func NormalizePhases(phases []models.PaymentPhase) []models.PaymentPhase {
	seen := make(map[string]struct{}, len(phases))
	out := make([]models.PaymentPhase, 0, len(phases))
	for _, p := range phases {
		if _, dup := seen[p.Period]; dup {
			continue
		}
		seen[p.Period] = struct{}{}
		out = append(out, p)
	}
	SortPhases(out)
	return out
}

// SortPhases orders phases by the numeric start of their period, keeping
// the relative order of equal starts.
func SortPhases(phases []models.PaymentPhase) {
	sort.SliceStable(phases, func(i, j int) bool {
		return periodStart(phases[i].Period) < periodStart(phases[j].Period)
	})
}

func parsePhaseRow(row string) (models.PaymentPhase, bool) {
	m := periodRegexp.FindStringSubmatch(row)
	if m == nil {
		return models.PaymentPhase{}, false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	period := FormatPeriod(start, end)

	if strings.Contains(row, noPaymentMarker) {
		return models.PaymentPhase{Period: period, Amount: 0}, true
	}

	am := phaseAmountRegexp.FindStringSubmatch(row)
	if am == nil {
		return models.PaymentPhase{}, false
	}
	amount, err := strconv.Atoi(strings.ReplaceAll(am[1], ",", ""))
	if err != nil || amount < 1 {
		return models.PaymentPhase{}, false
	}
	return models.PaymentPhase{Period: period, Amount: amount}, true
}

func probePhases(content string) []models.PaymentPhase {
	var phases []models.PaymentPhase
	for _, probe := range phaseProbes {
		m := probe.amount.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		amount, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err == nil && amount >= 1 {
			phases = append(phases, models.PaymentPhase{Period: probe.period, Amount: amount})
		}
	}

	last := phaseProbes[len(phaseProbes)-1]
	if !hasPeriod(phases, last.period) && last.free.MatchString(content) {
		phases = append(phases, models.PaymentPhase{Period: last.period, Amount: 0})
	}

	SortPhases(phases)
	return phases
}

func hasPeriod(phases []models.PaymentPhase, period string) bool {
	for _, p := range phases {
		if p.Period == period {
			return true
		}
	}
	return false
}

func periodStart(period string) int {
	m := periodStartRegexp.FindStringSubmatch(period)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
