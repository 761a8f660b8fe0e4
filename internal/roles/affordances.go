package roles

// Affordances tells the page which controls to show or enable. It is derived
// from Permissions on every request and never stored.
type Affordances struct {
	ShowSignIn       bool `json:"showSignIn"`
	ShowSignOut      bool `json:"showSignOut"`
	ShowUIDRow       bool `json:"showUidRow"`
	ShowModEntry     bool `json:"showModEntry"`
	ShowAdminTools   bool `json:"showAdminTools"`
	ShowHiddenToggle bool `json:"showHiddenToggle"`
	ShowBlockedBadge bool `json:"showBlockedBadge"`
	ComposerEnabled  bool `json:"composerEnabled"`
	ReactionsEnabled bool `json:"reactionsEnabled"`
	CandleEnabled    bool `json:"candleEnabled"`
	ReportEnabled    bool `json:"reportEnabled"`
}

func (p Permissions) Affordances() Affordances {
	interact := p.AllowInteract() == nil
	return Affordances{
		ShowSignIn:       !p.Authenticated,
		ShowSignOut:      p.Authenticated,
		ShowUIDRow:       p.Authenticated,
		ShowModEntry:     p.CanModerate,
		ShowAdminTools:   p.CanPromote,
		ShowHiddenToggle: p.CanModerate,
		ShowBlockedBadge: p.Authenticated && p.IsBlocked,
		ComposerEnabled:  interact,
		ReactionsEnabled: interact,
		CandleEnabled:    interact,
		ReportEnabled:    p.Authenticated,
	}
}
