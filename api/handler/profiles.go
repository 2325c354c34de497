package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobseekerhq/harvest/models"
	"github.com/jobseekerhq/harvest/scraper"
)

// Profiles returns a handler for GET /api/v1/profiles, listing the
// registered site profiles in detection order.
func Profiles(eng *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		all := eng.Registry().All()
		infos := make([]models.ProfileInfo, 0, len(all))
		for _, p := range all {
			infos = append(infos, models.ProfileInfo{
				Key:                 p.Key,
				Name:                p.Name,
				DescriptionRules:    len(p.Description),
				ModalRules:          len(p.Modals),
				DynamicLoading:      p.DynamicLoading,
				StrongBotProtection: p.StrongBotProtection,
			})
		}
		c.JSON(http.StatusOK, gin.H{"profiles": infos})
	}
}
