package profile

import "time"

// genericProfile covers unknown job boards with broadly common class
// names, ordered from specific to catch-all.
func genericProfile() *Profile {
	return &Profile{
		Key:  "generic",
		Name: "Generic",
		Description: []string{
			".job-description",
			"#job-description",
			".description",
			".job-details",
			`[class*="job-desc"]`,
			`[class*="description"]`,
			"article",
			"main",
		},
		Title: []string{
			".job-title",
			"h1",
			`[class*="title"]`,
		},
		Company: []string{
			".company-name",
			".company",
			`[class*="company"]`,
		},
		Location: []string{
			".job-location",
			".location",
			`[class*="location"]`,
		},
		Modals: []string{
			".modal-close",
			".close-modal",
			`button[aria-label="Close"]`,
			`button[aria-label="Dismiss"]`,
		},
	}
}

// builtins returns the profiles for the supported job boards. Order
// matters: detection walks this list first-match-wins.
func builtins() []*Profile {
	return []*Profile{
		{
			Key:  "linkedin.com",
			Name: "LinkedIn",
			Description: []string{
				".description__text--rich",
				".description__text",
				".jobs-description__content",
				".show-more-less-html__markup",
			},
			Title: []string{
				"h1.jobs-unified-top-card__job-title",
				"h1.topcard__title",
				".job-details-jobs-unified-top-card__job-title h1",
			},
			Company: []string{
				".jobs-unified-top-card__company-name a",
				".topcard__org-name-link",
				".job-details-jobs-unified-top-card__company-name a",
			},
			Location: []string{
				".jobs-unified-top-card__bullet",
				".topcard__flavor--bullet",
			},
			Modals: []string{
				`[data-test-modal="guest-frontend-challenge-modal"] button[aria-label="Dismiss"]`,
				".modal__dismiss",
				".artdeco-modal__dismiss",
				`button[aria-label="Dismiss"]`,
			},
		},
		{
			Key:  "naukri.com",
			Name: "Naukri",
			// The obfuscated class hash rotates between single and
			// double underscore builds, so both spellings are listed.
			Description: []string{
				"section.styles_job-desc-container_txpYf",
				".styles_job-desc-container_txpYf",
				"section.styles_job-desc-container__txpYf",
				".styles_job-desc-container__txpYf",
				".job-desc-container",
				".jd-description",
				`[class*="job-desc"]`,
				`[class*="description"]`,
			},
			Title: []string{
				".jd-header-title",
				".job-title",
				"h1",
				`[class*="title"]`,
			},
			Company: []string{
				".jd-header-company-name",
				".company-name",
				".comp-name",
				`[class*="company"]`,
			},
			Location: []string{
				".jd-job-loc",
				".job-location",
				".location",
				`[class*="location"]`,
			},
			Modals: []string{
				".modal-close",
				".close-modal",
				`button[aria-label="Close"]`,
			},
			DynamicLoading:      true,
			ExtraWait:           8 * time.Second,
			StrongBotProtection: true,
		},
		{
			Key:  "wellfound.com",
			Name: "Wellfound",
			Description: []string{
				"#job-description",
				".job-description",
				".description-content",
			},
			Title: []string{
				".job-title",
				"h1.title",
				"h1",
			},
			Company: []string{
				".company-name",
				".startup-name",
				".company-link",
			},
			Location: []string{
				".job-location",
				".location",
				".remote-ok",
			},
			Modals: []string{
				".modal-close",
				`button[aria-label="Close"]`,
			},
		},
		{
			Key:  "indeed.com",
			Name: "Indeed",
			Description: []string{
				"#jobDescriptionText",
				".jobsearch-jobDescriptionText",
				".job-description",
			},
			Title: []string{
				".jobsearch-JobInfoHeader-title",
				"h1.jobsearch-JobInfoHeader-title",
				".job-title",
			},
			Company: []string{
				".jobsearch-InlineCompanyRating .icl-u-lg-mr--sm",
				".company-name",
				`[data-testid="inlineHeader-companyName"]`,
			},
			Location: []string{
				".jobsearch-JobInfoHeader-subtitle",
				".job-location",
				`[data-testid="job-location"]`,
			},
			Modals: []string{
				".popover-x-button",
				`button[aria-label="close"]`,
			},
		},
		{
			Key:  "internshala.com",
			Name: "Internshala",
			Description: []string{
				".internship_details",
				".internship-details",
				".job-description",
			},
			Title: []string{
				".profile",
				".internship-title",
				"h1",
			},
			Company: []string{
				".company-name",
				".company",
				".org-name",
			},
			Location: []string{
				".location_link",
				".locations",
				".location",
			},
			Modals: []string{
				".modal-close",
				`button[aria-label="Close"]`,
			},
		},
	}
}
