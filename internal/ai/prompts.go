package ai

// Airdrop relevance filter prompts
const (
	AirdropFilterSystemPrompt = `You are a crypto airdrop content classifier. You must recognize every kind of airdrop-related content: official announcements, tutorials, strategy guides, point-farming walkthroughs, discussion and analysis. If a tweet touches airdrops, points programs, TGE, farming, holding-for-points or similar campaign mechanics, answer true. Only content completely unrelated to airdrops gets false. Answer only true or false.`

	AirdropFilterUserPrompt = `Decide whether the following tweet is related to a crypto airdrop campaign.

Answer true when the tweet covers:
- An official airdrop announcement, distribution plan, or claim window
- Token or NFT airdrops published by the project team
- Snapshot dates, eligibility criteria, reward or referral programs
- Token launches, TGE (token generation events), new token distributions
- Airdrop tutorials, strategy guides, or point-farming walkthroughs (how to qualify, farming tactics, step-by-step instructions)
- Airdrop discussion and analysis (project breakdowns, participation strategy, ways to earn points)
- Third-party shares of airdrop opportunities (KOL-shared projects, farming guides, participation tips)

Answer false when the tweet is:
- Crypto discussion with no airdrop angle
- Pure market analysis or price prediction
- A generic project introduction that never mentions airdrops, points, or TGE
- Technical discussion unrelated to airdrops or points
- News with no airdrop relevance

Key rule: any mention of airdrops, points systems, TGE, farming, or holding-for-points means true, including tutorials and discussion. Only fully unrelated crypto content is false.

Tweet content:
%s

Respond with exactly true or false, nothing else.`
)
