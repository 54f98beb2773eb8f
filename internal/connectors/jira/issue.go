package jira

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fentz26/issuewatch/internal/models"
)

type namedField struct {
	Name string `json:"name"`
}

type issueDocument struct {
	Key    string `json:"key"`
	Fields *struct {
		Summary   string      `json:"summary"`
		IssueType *namedField `json:"issuetype"`
		Status    *namedField `json:"status"`
	} `json:"fields"`
}

// ParseIssue extracts key, summary, type and status from a search result.
// A record missing any of them is malformed.
func ParseIssue(raw models.RawIssue) (models.Issue, error) {
	var doc issueDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.Issue{}, fmt.Errorf("%w: %v", ErrMalformedIssue, err)
	}

	var missing []string
	issue := models.Issue{Key: strings.TrimSpace(doc.Key)}
	if issue.Key == "" {
		missing = append(missing, "key")
	}
	if doc.Fields == nil {
		missing = append(missing, "fields")
	} else {
		issue.Summary = doc.Fields.Summary
		if strings.TrimSpace(issue.Summary) == "" {
			missing = append(missing, "fields.summary")
		}
		if doc.Fields.IssueType == nil || doc.Fields.IssueType.Name == "" {
			missing = append(missing, "fields.issuetype.name")
		} else {
			issue.Type = doc.Fields.IssueType.Name
		}
		if doc.Fields.Status == nil || doc.Fields.Status.Name == "" {
			missing = append(missing, "fields.status.name")
		} else {
			issue.Status = doc.Fields.Status.Name
		}
	}

	if len(missing) > 0 {
		key := issue.Key
		if key == "" {
			key = "<unknown>"
		}
		return models.Issue{}, fmt.Errorf("%w: %s missing %s", ErrMalformedIssue, key, strings.Join(missing, ", "))
	}
	return issue, nil
}
