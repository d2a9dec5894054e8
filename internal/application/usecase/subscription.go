package usecase

import (
	"fmt"
	"strings"

	"github.com/tesso57/feedwatch/internal/domain/monitor"
)

// SubscriptionRepository abstracts persistence for feed subscriptions.
type SubscriptionRepository interface {
	List() ([]monitor.Subscription, error)
	Add(sub monitor.Subscription) error
	Remove(index int) error
}

// SubscriptionService provides subscription-related operations.
type SubscriptionService struct {
	Repo SubscriptionRepository
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository) SubscriptionService {
	return SubscriptionService{Repo: repo}
}

// List returns all subscriptions.
func (s SubscriptionService) List() ([]monitor.Subscription, error) {
	return s.Repo.List()
}

// Add registers a new feed with an optional keyword and returns the updated list.
func (s SubscriptionService) Add(url, keyword string) ([]monitor.Subscription, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, fmt.Errorf("feed url is empty")
	}
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return nil, fmt.Errorf("feed url contains whitespace")
	}
	existing, err := s.Repo.List()
	if err != nil {
		return nil, err
	}
	for _, sub := range existing {
		if sub.URL == trimmed {
			return nil, fmt.Errorf("feed already subscribed: %s", trimmed)
		}
	}
	if err := s.Repo.Add(monitor.Subscription{URL: trimmed, Keyword: strings.TrimSpace(keyword)}); err != nil {
		return nil, err
	}
	return s.Repo.List()
}

// Remove deletes a feed by index and returns the updated list.
func (s SubscriptionService) Remove(index int) ([]monitor.Subscription, error) {
	if err := s.Repo.Remove(index); err != nil {
		return nil, err
	}
	return s.Repo.List()
}
