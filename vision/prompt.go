package vision

import "fmt"

// MenuPrompt builds the extraction prompt for a single menu document.
// restaurant and siteURL are echoed into every extracted record; menuName
// labels which menu the document is (e.g. "Dinner Menu").
func MenuPrompt(restaurant, siteURL, menuName string) string {
	return fmt.Sprintf(`You are reading a restaurant menu. Extract EVERY menu item and return a JSON array. Each element must have exactly these string fields:

  name, description, price, section, menu_name, restaurant_name, restaurant_url

Set restaurant_name to %q, restaurant_url to %q, and menu_name to %q on every item. Use "" for any field the menu does not provide.

CRITICAL PRICING RULES:
1. A price printed next to a section header applies to EVERY item under that header unless an item shows its own price.
2. An item's own printed price always overrides the section price.
3. Section headers themselves are NOT menu items. Do not emit them.
4. Ignore page footers, addresses, phone numbers, and hours.
5. Menus are often laid out in two columns. Read each column top to bottom, never across.
6. Include the "$" symbol with every price. Multi-size prices keep their labels, like "Small $12 | Large $30".

Return ONLY the JSON array. No markdown fences, no commentary.`, restaurant, siteURL, menuName)
}
