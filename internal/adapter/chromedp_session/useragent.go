package chromedp_session

import "sync"

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// UserAgentRotator hands out user agents sequentially so that each browser
// restart presents a different one.
type UserAgentRotator struct {
	mu     sync.Mutex
	agents []string
	index  int
}

// NewUserAgentRotator falls back to a built-in list when agents is empty.
func NewUserAgentRotator(agents []string) *UserAgentRotator {
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &UserAgentRotator{agents: agents}
}

// Next returns the next user agent, wrapping around at the end of the list.
func (r *UserAgentRotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent := r.agents[r.index]
	r.index = (r.index + 1) % len(r.agents)
	return agent
}
