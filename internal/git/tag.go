package git

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// DefaultRemote is the remote release tags are pushed to.
const DefaultRemote = "origin"

// TagResult describes what Tagger.Tag did.
type TagResult struct {
	Tag       string `json:"tag" yaml:"tag"`
	Remote    string `json:"remote" yaml:"remote"`
	RemoteURL string `json:"remote_url" yaml:"remote_url"`
	Created   bool   `json:"created" yaml:"created"`
	Replaced  bool   `json:"replaced" yaml:"replaced"`
}

// Tagger creates and publishes release tags.
type Tagger struct {
	repo   *Repo
	remote string
}

// NewTagger creates a Tagger pushing to DefaultRemote.
func NewTagger(repo *Repo) *Tagger {
	return &Tagger{repo: repo, remote: DefaultRemote}
}

// Tag creates tag if it is missing and pushes it. With force, an existing
// local tag is deleted and the remote tag removed before re-creating it.
func (t *Tagger) Tag(tag string, force bool) (TagResult, error) {
	result := TagResult{Tag: tag, Remote: t.remote}

	if !t.repo.IsWorkTree() {
		return result, ErrNotWorkTree
	}

	url, err := t.repo.RemoteURL(t.remote)
	if err != nil {
		return result, fmt.Errorf("%w; add it before tagging", err)
	}
	result.RemoteURL = url

	exists, err := t.repo.HasTag(tag)
	if err != nil {
		return result, err
	}

	if force {
		if exists {
			if err := t.repo.DeleteTag(tag); err != nil {
				return result, err
			}
			result.Replaced = true
		}
		// the remote may not have the tag yet
		if err := t.repo.DeleteRemoteTag(t.remote, tag); err != nil {
			log.Debugf("removing remote tag %s: %v", tag, err)
		}
		exists = false
	}

	if !exists {
		log.Infof("creating tag %s", tag)
		if err := t.repo.CreateTag(tag); err != nil {
			return result, err
		}
		result.Created = true
	} else {
		log.Infof("tag %s already exists locally", tag)
	}

	log.Infof("pushing %s to %s (%s)", tag, t.remote, url)
	if err := t.repo.PushTag(t.remote, tag); err != nil {
		return result, err
	}
	return result, nil
}
