package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, reason := range []string{"template", "duplicate"} {
		SyncItemsSkipped.WithLabelValues(reason)
	}

	for _, status := range []string{"ok", "timeout", "error", "rejected"} {
		ProbeQueriesTotal.WithLabelValues(status)
	}

	for _, op := range []string{"get_item_by_code", "list_items",
		"set_item_vocabulary", "prune_vocabulary", "list_genres", "list_tags",
		"add_favorite", "remove_favorite", "get_favorites",
		"create_user", "validate_password", "update_password",
		"create_session", "validate_session", "clean_expired_sessions"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, result := range []string{"success", "failure"} {
		AuthAttemptsTotal.WithLabelValues(result)
	}
}
