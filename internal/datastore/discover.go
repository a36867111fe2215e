package datastore

import (
	"sort"
	"strings"
)

// Label keys docker compose stamps on the containers it starts.
const (
	composeProjectLabel = "com.docker.compose.project"
	composeServiceLabel = "com.docker.compose.service"
)

// FindByHint resolves the single running container whose name contains
// hint. Zero matches returns *NotFoundError, more than one *AmbiguousError.
func FindByHint(refs []ContainerRef, hint string) (ContainerRef, error) {
	var matches []ContainerRef
	for _, ref := range refs {
		if strings.Contains(ref.Name, hint) {
			matches = append(matches, ref)
		}
	}
	return exactlyOne(matches, hint, len(refs))
}

// FindByComposeService resolves the single running container carrying the
// compose project and service labels.
func FindByComposeService(refs []ContainerRef, project, service string) (ContainerRef, error) {
	var matches []ContainerRef
	for _, ref := range refs {
		if ref.Labels[composeProjectLabel] == project && ref.Labels[composeServiceLabel] == service {
			matches = append(matches, ref)
		}
	}
	return exactlyOne(matches, project+"/"+service, len(refs))
}

func exactlyOne(matches []ContainerRef, hint string, running int) (ContainerRef, error) {
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return ContainerRef{}, &NotFoundError{Hint: hint, Running: running}
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		sort.Strings(names)
		return ContainerRef{}, &AmbiguousError{Hint: hint, Names: names}
	}
}
