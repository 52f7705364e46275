package app

import "github.com/autopeer-io/gatepanel/pkg/log"

func redact(key string, value any) any {
	if log.Sensitive(key) {
		return log.Redacted
	}
	return value
}
