package twitter

import "strings"

var (
	timelineExpansions = strings.Join([]string{
		"author_id",
		"in_reply_to_user_id",
		"referenced_tweets.id",
		"referenced_tweets.id.author_id",
		"entities.mentions.username",
		"attachments.poll_ids",
		"attachments.media_keys",
		"geo.place_id",
	}, ",")

	tweetFields = strings.Join([]string{
		"attachments",
		"author_id",
		"context_annotations",
		"conversation_id",
		"created_at",
		"entities",
		"geo",
		"id",
		"in_reply_to_user_id",
		"lang",
		"public_metrics",
		"text",
		"possibly_sensitive",
		"referenced_tweets",
		"reply_settings",
		"source",
		"withheld",
	}, ",")

	userFields = strings.Join([]string{
		"created_at",
		"description",
		"entities",
		"id",
		"location",
		"name",
		"pinned_tweet_id",
		"profile_image_url",
		"protected",
		"public_metrics",
		"url",
		"username",
		"verified",
	}, ",")

	mediaFields = strings.Join([]string{
		"alt_text",
		"duration_ms",
		"height",
		"media_key",
		"preview_image_url",
		"type",
		"url",
		"width",
		"public_metrics",
	}, ",")
)
