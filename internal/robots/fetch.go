package robots

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/inkyvoxel/interrogate/internal/fetch"
	consts "github.com/inkyvoxel/interrogate/internal/shared/constants"
	sharedErrors "github.com/inkyvoxel/interrogate/internal/shared/errors"
)

// Fetch retrieves and parses the robots.txt that governs pageURL. It never
// fails: retrieval problems are reported through Info.Error.
func Fetch(ctx context.Context, client *fetch.Client, pageURL string) *Info {
	robotsURL, err := fetch.RobotsURL(pageURL)
	if err != nil {
		return Failed(fmt.Sprintf("%s: %v", sharedErrors.ErrRobotsFetch, err))
	}

	resp, err := client.GetText(ctx, robotsURL)
	if err != nil {
		return Failed(fmt.Sprintf("%s: %v", sharedErrors.ErrRobotsFetch, unwrapFetch(err)))
	}
	if resp.StatusCode != http.StatusOK {
		return Failed(fmt.Sprintf("%s (status %d)", sharedErrors.ErrRobotsNotFound, resp.StatusCode))
	}

	body := resp.Body
	if len(body) > consts.RobotsMaxBytes {
		body = strings.ToValidUTF8(body[:consts.RobotsMaxBytes], "")
	}

	info := Parse(body)
	allowed := info.Allows(client.UserAgent(), pageURL)
	info.TargetAllowed = &allowed
	return info
}

// unwrapFetch strips the generic fetch sentinel so the message names the
// underlying cause once.
func unwrapFetch(err error) error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			if !errors.Is(e, sharedErrors.ErrFetchFailed) {
				return e
			}
		}
	}
	return err
}
