package mongo

import (
	"time"

	"github.com/educlove/educlove-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mean Earth radius, used to express $centerSphere radii in radians.
const earthRadiusKm = 6378.1

// BuildCandidateQuery assembles the discovery filter for one user:
//   - age range translated into a date_of_birth window
//   - gender restricted to the requester's looking_for_gender
//   - reciprocal constraint: the candidate's own looking_for_gender must
//     include the requester's gender
//   - relationship-goal overlap with the requester's looking_for
//   - subject filter from saved criteria
//   - membership in any one of the saved (location, radius) circles
//   - exclusion of the requester and of already-visited profiles
//
// criteria may be nil, meaning "no saved constraint". Location pairs with a
// non-positive radius contribute nothing.
func BuildCandidateQuery(requester *models.Profile, criteria *models.SearchCriteria, visitedIDs []string, now time.Time) bson.M {
	query := bson.M{}

	exclude := make([]primitive.ObjectID, 0, len(visitedIDs)+1)
	if !requester.ID.IsZero() {
		exclude = append(exclude, requester.ID)
	}
	for _, id := range visitedIDs {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			exclude = append(exclude, oid)
		}
	}
	if len(exclude) > 0 {
		query["_id"] = bson.M{"$nin": exclude}
	}

	if len(requester.LookingForGender) > 0 {
		query["gender"] = bson.M{"$in": requester.LookingForGender}
	}
	// Reciprocity: only profiles that would want to see the requester.
	query["looking_for_gender"] = requester.Gender
	if len(requester.LookingFor) > 0 {
		query["looking_for"] = bson.M{"$in": requester.LookingFor}
	}

	if criteria != nil {
		dob := bson.M{}
		if criteria.AgeMin != nil {
			// at least age_min years old
			dob["$lte"] = now.AddDate(-*criteria.AgeMin, 0, 0)
		}
		if criteria.AgeMax != nil {
			// born after the (age_max+1)th birthday cutoff
			dob["$gt"] = now.AddDate(-(*criteria.AgeMax + 1), 0, 0)
		}
		if len(dob) > 0 {
			query["date_of_birth"] = dob
		}

		if len(criteria.Subjects) > 0 {
			query["subject"] = bson.M{"$in": criteria.Subjects}
		}

		if geo := geoClauses(criteria); len(geo) == 1 {
			query["location"] = geo[0]["location"]
		} else if len(geo) > 1 {
			query["$or"] = geo
		}
	}

	return query
}

// geoClauses builds one $geoWithin circle per valid (location, radius)
// pair. $centerSphere supports $or, so the any-radius union is a single
// query rather than the per-location scatter the engine forces on $near.
func geoClauses(criteria *models.SearchCriteria) []bson.M {
	n := len(criteria.Locations)
	if len(criteria.Radii) < n {
		n = len(criteria.Radii)
	}

	clauses := make([]bson.M, 0, n)
	for i := 0; i < n; i++ {
		radius := criteria.Radii[i]
		loc := criteria.Locations[i]
		if radius <= 0 || len(loc.Coordinates) != 2 {
			continue
		}
		clauses = append(clauses, bson.M{
			"location": bson.M{
				"$geoWithin": bson.M{
					"$centerSphere": bson.A{
						bson.A{loc.Lon(), loc.Lat()},
						float64(radius) / earthRadiusKm,
					},
				},
			},
		})
	}
	return clauses
}
