package opt

import "sync"

type runKey struct {
    Account  string
    PlanDate string
    Algo     string
}

var (
    mu   sync.Mutex
    runs = map[runKey]Metrics{}
)

// RecordRun stores the metrics of one sequencing run, keyed by account,
// plan date and algorithm. Later runs for the same key overwrite.
func RecordRun(account, planDate, algo string, m Metrics) {
    mu.Lock()
    runs[runKey{Account: account, PlanDate: planDate, Algo: algo}] = m
    mu.Unlock()
}

// RunsFor returns all recorded runs for an account and plan date, by algorithm.
func RunsFor(account, planDate string) map[string]Metrics {
    mu.Lock()
    defer mu.Unlock()
    out := map[string]Metrics{}
    for k, v := range runs {
        if k.Account == account && k.PlanDate == planDate {
            out[k.Algo] = v
        }
    }
    return out
}
