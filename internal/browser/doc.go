// Package browser drives pages that only render their content after a
// form interaction.
//
// Driver abstracts the browser; Session implements it with chromedp and a
// local Chrome. Search runs a form interaction as explicit steps and
// reports the failing step through StepError.
//
//	s, err := browser.NewSession(ctx)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	err = browser.Search(ctx, s, browser.StoreSearchForm(url, "10001"))
package browser
