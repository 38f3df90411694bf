package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	updatesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_updates_processed_total",
		Help: "Telegram updates processed, by transport (polling/webhook) and success.",
	}, []string{"transport", "success"})

	commandsHandled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_commands_handled_total",
		Help: "Bot commands handled, by command.",
	}, []string{"command"})

	membershipChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "group_membership_checks_total",
		Help: "Group membership checks, by source (cache/api) and result.",
	}, []string{"source", "member"},
	)
)

func init() {
	register(updatesProcessed, commandsHandled, membershipChecks)
}

func IncUpdateProcessed(transport string, success bool) {
	updatesProcessed.WithLabelValues(norm(transport), strconv.FormatBool(success)).Inc()
}

func IncCommandHandled(command string) {
	commandsHandled.WithLabelValues(norm(command)).Inc()
}

func IncMembershipCheck(source string, member bool) {
	membershipChecks.WithLabelValues(norm(source), strconv.FormatBool(member)).Inc()
}
