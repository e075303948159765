package wistia

// Project is a Wistia project. Medias is only populated by ShowProject.
type Project struct {
	ID          int64   `json:"id"`
	HashedID    string  `json:"hashedId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	MediaCount  int     `json:"mediaCount"`
	Created     string  `json:"created"`
	Updated     string  `json:"updated"`
	Medias      []Media `json:"medias"`
}

// Media is a hosted video (or other file).
type Media struct {
	ID       int64   `json:"id"`
	HashedID string  `json:"hashed_id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
	Assets   []Asset `json:"assets"`
}

// Asset is one stored rendition of a media.
type Asset struct {
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
	Type        string `json:"type"`
}

// Caption is a caption track attached to a media. Language is ISO 639-2.
type Caption struct {
	Language    string `json:"language"`
	EnglishName string `json:"english_name"`
	NativeName  string `json:"native_name"`
	Text        string `json:"text"`
}

// Customizations is the free-form embed customization document.
type Customizations map[string]any

// CaptionsPlugin is the customization plugin key that shows captions.
const CaptionsPlugin = "captions-v1"

// HasCaptionsPlugin reports whether the captions plugin is configured at all.
func (c Customizations) HasCaptionsPlugin() bool {
	return c.captionsPlugin() != nil
}

// CaptionsEnabled reports whether captions are displayed by default.
func (c Customizations) CaptionsEnabled() bool {
	plugin := c.captionsPlugin()
	if plugin == nil {
		return false
	}
	switch v := plugin["onByDefault"].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func (c Customizations) captionsPlugin() map[string]any {
	plugins, ok := c["plugin"].(map[string]any)
	if !ok {
		return nil
	}
	plugin, _ := plugins[CaptionsPlugin].(map[string]any)
	return plugin
}
