package app

// Config is required configuration for app
type Config struct {
	HTTPPort        string `json:"HTTPPort"`
	EncryptKey      string `json:"encKey"`
	BackendBaseURL  string `json:"backendBaseURL"`
	AppDatabasePath string `json:"appDatabasePath"`

	RateLimit          string `json:"rateLimit"`
	RobotsTextFilePath string `json:"robotsTxtPath"`

	HaveRobotsTxt bool `json:"haveRobotsTxt"`
	ServeFeeds    bool `json:"serveFeeds"`
	ServeSitemap  bool `json:"serveSitemap"`

	//PageSize is the number of stories asked for per /stories request.
	PageSize int `json:"pageSize"`
	//SiteBaseURL is the public base url used in feeds and the sitemap.
	SiteBaseURL string `json:"siteBaseURL"`
}
