package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"linkedin-scraper/internal/config"
	"linkedin-scraper/internal/credentials"
	"linkedin-scraper/internal/scraper"
	"linkedin-scraper/pkg/types"
)

type consoleInput struct {
	email      string
	password   string
	profileURL string
	scrolls    int
	maxPosts   int
}

type console struct {
	in  *bufio.Reader
	out io.Writer
	// readSecret reads a line without echo; nil falls back to a plain read.
	readSecret func() (string, error)
}

func newConsole(in *bufio.Reader, out io.Writer) *console {
	c := &console{in: in, out: out}
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		c.readSecret = func() (string, error) {
			secret, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(secret), err
		}
	}
	return c
}

// collect prompts for everything a console run needs. Defaults come from
// the environment first, then from the keyring when keys is set.
func (c *console) collect(cfg *config.Config, keys *credentials.Store) (*consoleInput, error) {
	input := &consoleInput{}

	defaultEmail := cfg.LinkedIn.Email
	if defaultEmail == "" && keys != nil {
		if last, err := keys.LastIdentity(); err == nil {
			defaultEmail = last
		}
	}

	var err error
	if input.email, err = c.prompt("LinkedIn Email", defaultEmail); err != nil {
		return nil, err
	}
	if input.email == "" {
		return nil, errors.New("email is required")
	}

	if input.email == cfg.LinkedIn.Email && cfg.LinkedIn.Password != "" {
		input.password = cfg.LinkedIn.Password
	} else if keys != nil {
		if secret, err := keys.Lookup(input.email); err == nil {
			fmt.Fprintln(c.out, "🔑 Using password stored in keyring")
			input.password = secret
		}
	}
	if input.password == "" {
		if input.password, err = c.secret("LinkedIn Password"); err != nil {
			return nil, err
		}
	}
	if input.password == "" {
		return nil, errors.New("password is required")
	}

	if input.profileURL, err = c.prompt("LinkedIn Profile URL", ""); err != nil {
		return nil, err
	}
	if !strings.Contains(input.profileURL, cfg.LinkedIn.RequiredDomain) {
		return nil, fmt.Errorf("profile URL must contain %s", cfg.LinkedIn.RequiredDomain)
	}

	if input.scrolls, err = c.promptInt("Number of scrolls", cfg.Scraper.Scrolls); err != nil {
		return nil, err
	}
	if input.maxPosts, err = c.promptInt("Max posts to extract", cfg.Scraper.MaxPosts); err != nil {
		return nil, err
	}
	return input, nil
}

func (c *console) prompt(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(c.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(c.out, "%s: ", label)
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (c *console) promptInt(label string, def int) (int, error) {
	value, err := c.prompt(fmt.Sprintf("%s (default %d)", label, def), "")
	if err != nil {
		return 0, err
	}
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number, got %q", strings.ToLower(label), value)
	}
	return n, nil
}

func (c *console) secret(label string) (string, error) {
	if c.readSecret == nil {
		return c.prompt(label, "")
	}
	fmt.Fprintf(c.out, "%s: ", label)
	value, err := c.readSecret()
	return strings.TrimSpace(value), err
}

func displayPosts(w io.Writer, posts []types.Post) {
	fmt.Fprintf(w, "\n📋 === EXTRACTED POSTS (%d total) ===\n\n", len(posts))

	for _, post := range posts {
		fmt.Fprintf(w, "🔸 Post #%d (%s)\n", post.PostNumber, post.PostType)
		if post.AuthorName != nil {
			fmt.Fprintf(w, "   👤 %s\n", *post.AuthorName)
		}
		if post.Timestamp != "" {
			fmt.Fprintf(w, "   📅 %s\n", post.Timestamp)
		}
		if post.PostURL != nil {
			fmt.Fprintf(w, "   🔗 LinkedIn Post URL: %s\n", *post.PostURL)
			if post.PermalinkSource == types.PermalinkFromClipboard {
				fmt.Fprintln(w, "      (copied from clipboard, verify before use)")
			}
		}
		fmt.Fprintf(w, "   💬 %s\n", post.Content)
		if len(post.MediaURLs) > 0 {
			fmt.Fprintln(w, "   🖼  Media URLs:")
			for _, url := range post.MediaURLs {
				fmt.Fprintf(w, "     - %s\n", url)
			}
		}
		if line := engagementLine(post.Engagement); line != "" {
			fmt.Fprintf(w, "   📊 %s\n", line)
		}
		fmt.Fprintln(w, strings.Repeat("-", 80))
	}
}

func engagementLine(engagement map[string]string) string {
	parts := []string{}
	for _, key := range []string{"reactions", "comments"} {
		if v := engagement[key]; v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", key, v))
		}
	}
	return strings.Join(parts, " | ")
}

func printSummary(w io.Writer, posts []types.Post, downloaded bool) {
	fmt.Fprintln(w, "\n📊 Summary:")
	fmt.Fprintf(w, "- Total posts: %d\n", len(posts))
	fmt.Fprintf(w, "- Video posts: %d\n", scraper.CountVideoPosts(posts))
	if downloaded {
		fmt.Fprintf(w, "- Media files downloaded: %d\n", scraper.CountMedia(posts))
	}
}
