package redis

import "fmt"

// Key layout, namespaced so several vaults can share one server:
//
//	studywise:{namespace}:doc:{id}   hash with content and metadata
//	studywise:{namespace}:docs       set of document IDs
//	studywise:{namespace}:events     pub/sub channel of change events

// DocKey returns the hash key holding one document.
func DocKey(namespace, id string) string {
	return fmt.Sprintf("studywise:%s:doc:%s", namespace, id)
}

// IndexKey returns the set key listing every document ID.
func IndexKey(namespace string) string {
	return fmt.Sprintf("studywise:%s:docs", namespace)
}

// EventsChannel returns the channel change events are published on.
func EventsChannel(namespace string) string {
	return fmt.Sprintf("studywise:%s:events", namespace)
}
