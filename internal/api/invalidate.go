package api

import (
	"strings"

	"lin/internal/eventbus"
	"lin/internal/log"
)

// invalidationPrefixes maps an event resource to the API paths whose cached
// responses it makes stale.
var invalidationPrefixes = map[string][]string{
	eventbus.ResourceTask:          {"/tasks"},
	eventbus.ResourceExpense:       {"/expenses"},
	eventbus.ResourceEvent:         {"/events"},
	eventbus.ResourceJournal:       {"/journal"},
	eventbus.ResourcePending:       {"/daily-updates"},
	eventbus.ResourceProfile:       {"/users"},
	eventbus.ResourcePreferences:   {"/users"},
	eventbus.ResourceNotifications: {"/notifications"},
}

func (c *Client) invalidate(ev eventbus.Event) {
	resource := eventbus.Resource(ev.Name)

	// Auth changes switch users; accepted drafts land in other resources.
	if resource == eventbus.ResourceAuth || ev.Name == eventbus.PendingAccepted {
		c.cacheGen.Add(1)
		c.cache.Purge()
		return
	}

	prefixes, ok := invalidationPrefixes[resource]
	if !ok {
		return
	}
	c.cacheGen.Add(1)
	removed := c.cache.DeleteFunc(func(key string) bool {
		for _, p := range prefixes {
			if key == p || strings.HasPrefix(key, p+"/") || strings.HasPrefix(key, p+"?") {
				return true
			}
		}
		return false
	})
	if removed > 0 {
		c.logger.Debug("Cached responses invalidated",
			log.FieldEvent, ev.Name, log.FieldResource, resource, "count", removed)
	}
}
