package prompts

// Static instruction blocks shared by the prompt builders. The marker
// strings at the end of each block must match pkg/llm/parser exactly; the
// parsers slice responses around them.

// choiceInstructions asks the model to pick one of two presented items and
// justify the pick in a parseable format.
const choiceInstructions = `You are a shopper choosing between two products.
Based on your self-introduction and the two product descriptions below, pick
the ONE product you would actually buy.

Reply in exactly this format:
Choice: <the title of the product you pick>
Explanation: <why you picked it>`

// userUpdateCorrective is used when the model picked the wrong item: the
// user agent is told its self-introduction failed to predict its own
// behavior and must be revised.
const userUpdateCorrective = `You chose the wrong product. You actually purchased the other one.
Your self-introduction did not reflect your real preferences, which misled
the choice above. Rewrite your self-introduction so it explains why you
would buy the product you really purchased and not the one that was chosen.
Do not mention specific product titles in your updated self-introduction.

Reply in exactly this format:
My updated self-introduction: <the rewritten self-introduction>`

// userUpdateReinforcing is used when the choice was correct: the
// self-introduction is refined with whatever the explanation revealed.
const userUpdateReinforcing = `You chose the right product. Your self-introduction correctly reflected
your preferences. Refine it with anything the explanation above reveals
about your taste, keeping everything that already works.
Do not mention specific product titles in your updated self-introduction.

Reply in exactly this format:
My updated self-introduction: <the rewritten self-introduction>`

// itemUpdateCorrective asks both item agents to revise their descriptions
// after the user's real purchase contradicted the choice.
const itemUpdateCorrective = `The user actually purchased the second product, not the chosen one.
Both product descriptions failed to convey what this kind of user cares
about. Rewrite both descriptions: the second product's description should
attract users like this one, and the first product's description should be
more accurate about who it suits.

Reply in exactly this format:
The updated description of the first item is: <rewritten description of the first item>
The updated description of the second item is: <rewritten description of the second item>`

// itemUpdateReinforcing revises both descriptions after a correct choice.
const itemUpdateReinforcing = `The user purchased the second product, and it was chosen correctly.
Polish both descriptions with what this interaction reveals: the second
product's description should keep attracting users like this one, and the
first product's description should better describe who it actually suits.

Reply in exactly this format:
The updated description of the first item is: <rewritten description of the first item>
The updated description of the second item is: <rewritten description of the second item>`

// crossDomainMerge asks the user agent to fold its per-domain private
// descriptions into one cross-domain preference statement.
const crossDomainMerge = `You are the same person across all of the shopping domains above. Combine
your per-domain preferences into a single statement of taste that holds
across domains, emphasizing whatever carries over from the other domains
into %s.

Reply in exactly this format:
My deduced preference: <the combined cross-domain preference>`

// evalRankInstructions asks for a complete ranking of the candidate list.
const evalRankInstructions = `Rank ALL %d candidate products from the one you are most likely to buy to
the one you are least likely to buy. Include every candidate exactly once.

Reply in exactly this format:
Rank:
1. <title of the top candidate>
2. <title of the next candidate>
... one numbered line per candidate, %d lines in total.`
