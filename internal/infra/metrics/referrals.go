package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	referralsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referrals_created_total",
		Help: "Referral records created (pending group join).",
	})

	referralsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "referrals_rejected_total",
		Help: "Referral attempts rejected, by reason (self/duplicate/foreign/invalid_code/unknown_code).",
	}, []string{"reason"})

	referralsVerified = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referrals_verified_total",
		Help: "Referrals verified through group membership.",
	})

	rewardsPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referral_rewards_paid_total",
		Help: "Total reward amount credited to referrers.",
	})
)

func init() {
	register(referralsCreated, referralsRejected, referralsVerified, rewardsPaid)
}

func IncReferralCreated() { referralsCreated.Inc() }

func IncReferralRejected(reason string) { referralsRejected.WithLabelValues(norm(reason)).Inc() }

func ReferralVerified(rewardAmount int64) {
	referralsVerified.Inc()
	rewardsPaid.Add(float64(rewardAmount))
}
