package docs

import "regexp"

var youtubeURL = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/`)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`v=([^&]+)`),
	regexp.MustCompile(`youtu\.be/([^?&]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^?&]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^?&]+)`),
}

// ValidateYouTubeURL reports whether url points at youtube.com or youtu.be.
func ValidateYouTubeURL(url string) bool {
	return youtubeURL.MatchString(url)
}

// ExtractVideoID returns the video id from a watch, short, embed or shorts
// link, or "" when none is found.
func ExtractVideoID(url string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}
