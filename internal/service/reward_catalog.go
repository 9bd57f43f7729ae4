package service

import "wastepoints/internal/model"

// RewardCatalog is the fixed set of rewards a balance can be redeemed for.
type RewardCatalog struct {
	rewards []model.Reward
	byID    map[int]model.Reward
}

// NewRewardCatalog builds a catalog. Later duplicates of an ID are ignored.
func NewRewardCatalog(rewards []model.Reward) *RewardCatalog {
	c := &RewardCatalog{byID: make(map[int]model.Reward, len(rewards))}
	for _, r := range rewards {
		if _, dup := c.byID[r.ID]; dup {
			continue
		}
		c.byID[r.ID] = r
		c.rewards = append(c.rewards, r)
	}
	return c
}

// DefaultRewardCatalog returns the rewards offered in the client.
func DefaultRewardCatalog() *RewardCatalog {
	return NewRewardCatalog([]model.Reward{
		{ID: 1, Name: "Galaxy SmartTag2", Points: 500, Image: "https://placehold.co/150x150/000000/FFFFFF?text=SmartTag"},
		{ID: 2, Name: "$20 Store Voucher", Points: 1000, Image: "https://placehold.co/150x150/1428a0/FFFFFF?text=%2420"},
		{ID: 3, Name: "Galaxy Buds FE", Points: 2500, Image: "https://placehold.co/150x150/EEEEEE/333333?text=Buds"},
		{ID: 4, Name: "Wireless Charger Pad", Points: 1500, Image: "https://placehold.co/150x150/333333/FFFFFF?text=Charger"},
	})
}

// List returns the rewards in catalog order.
func (c *RewardCatalog) List() []model.Reward {
	out := make([]model.Reward, len(c.rewards))
	copy(out, c.rewards)
	return out
}

// Find looks a reward up by ID.
func (c *RewardCatalog) Find(id int) (model.Reward, bool) {
	r, ok := c.byID[id]
	return r, ok
}
