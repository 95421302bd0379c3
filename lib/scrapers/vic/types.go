package vic

// ScrapedIdea is one idea as read off its detail page. Empty strings stand
// for fields the page did not have.
type ScrapedIdea struct {
	// Link is the detail page the idea was parsed from.
	Link string

	Ticker      string
	CompanyName string

	Username string
	// UserLink is the author's profile link, it is the author's natural key.
	UserLink string

	// Date is the raw posting date text, see ParseDate.
	Date string

	IsShort         bool
	IsContestWinner bool

	Description string
	Catalysts   string
}
