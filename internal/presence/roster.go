package presence

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"digifootprint/internal/gateway"
)

// Rule decides whether a probe response proves a profile exists.
type Rule int

const (
	// StatusOK accepts only HTTP 200.
	StatusOK Rule = iota
	// StatusOKOrRedirect also accepts 301 and 302; some platforms redirect
	// instead of returning 404 for an existing profile.
	StatusOKOrRedirect
	// NameMatch requires HTTP 200 and a JSON body whose data.name equals
	// the requested username exactly.
	NameMatch
)

func (r Rule) String() string {
	switch r {
	case StatusOK:
		return "status_ok"
	case StatusOKOrRedirect:
		return "status_ok_or_redirect"
	case NameMatch:
		return "name_match"
	default:
		return "unknown"
	}
}

// Platform is one roster entry. ProbeURL contains a {username} placeholder;
// the public profile link is SiteURL + "/" + username.
type Platform struct {
	Name            string
	SiteURL         string
	ProbeURL        string
	Method          string
	UserAgent       string
	FollowRedirects bool
	Rule            Rule
}

const placeholder = "{username}"

// request substitutes the path-escaped username, so '?', '#' and '/' stay
// inside the path segment.
func (p Platform) request(username string) gateway.ProbeRequest {
	return gateway.ProbeRequest{
		Platform:        p.Name,
		Method:          p.Method,
		URL:             strings.ReplaceAll(p.ProbeURL, placeholder, url.PathEscape(username)),
		UserAgent:       p.UserAgent,
		FollowRedirects: p.FollowRedirects,
	}
}

func (p Platform) profileURL(username string) string {
	return p.SiteURL + "/" + url.PathEscape(username)
}

func (p Platform) matches(resp gateway.ProbeResponse, username string) bool {
	switch p.Rule {
	case StatusOKOrRedirect:
		return resp.Status == http.StatusOK || resp.Status == http.StatusMovedPermanently || resp.Status == http.StatusFound
	case NameMatch:
		if resp.Status != http.StatusOK {
			return false
		}
		var about struct {
			Data struct {
				Name string `json:"name"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp.Body, &about); err != nil {
			return false
		}
		return about.Data.Name == username
	default:
		return resp.Status == http.StatusOK
	}
}

// DefaultRoster returns the platforms in the order they are walked.
func DefaultRoster() []Platform {
	return []Platform{
		{Name: "GitHub", SiteURL: "https://github.com", ProbeURL: "https://api.github.com/users/{username}", FollowRedirects: true},
		{Name: "Twitter", SiteURL: "https://twitter.com", ProbeURL: "https://twitter.com/{username}", Method: http.MethodHead, Rule: StatusOKOrRedirect},
		{Name: "Instagram", SiteURL: "https://instagram.com", ProbeURL: "https://www.instagram.com/{username}/", UserAgent: gateway.BrowserUserAgent, FollowRedirects: true},
		{Name: "LinkedIn", SiteURL: "https://linkedin.com", ProbeURL: "https://www.linkedin.com/in/{username}/", Method: http.MethodHead, Rule: StatusOKOrRedirect},
		{Name: "Reddit", SiteURL: "https://reddit.com", ProbeURL: "https://www.reddit.com/user/{username}/about.json", UserAgent: gateway.UserAgent, FollowRedirects: true, Rule: NameMatch},
		{Name: "TikTok", SiteURL: "https://tiktok.com", ProbeURL: "https://www.tiktok.com/@{username}", UserAgent: gateway.BrowserUserAgent, FollowRedirects: true},
		{Name: "YouTube", SiteURL: "https://youtube.com", ProbeURL: "https://www.youtube.com/@{username}", FollowRedirects: true},
		{Name: "Pinterest", SiteURL: "https://pinterest.com", ProbeURL: "https://pinterest.com/{username}/", Method: http.MethodHead, FollowRedirects: true},
		{Name: "Twitch", SiteURL: "https://twitch.tv", ProbeURL: "https://twitch.tv/{username}", Method: http.MethodHead, Rule: StatusOKOrRedirect},
		{Name: "Snapchat", SiteURL: "https://www.snapchat.com/add", ProbeURL: "https://www.snapchat.com/add/{username}", FollowRedirects: true},
		{Name: "Medium", SiteURL: "https://medium.com", ProbeURL: "https://medium.com/@{username}", FollowRedirects: true},
	}
}
